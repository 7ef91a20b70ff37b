// Package scheduler provides cancellable delayed and periodic tasks whose
// bodies run on a caller-supplied executor, so timer callbacks never touch
// shared state from their own goroutine.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler owns a set of timer-driven tasks. Submit is called with each
// due task body; the hub passes its loop-submission function here.
type Scheduler struct {
	mu     sync.Mutex
	submit func(func())
	tasks  map[*Task]struct{}
	closed bool
}

// Task is one scheduled unit of work.
type Task struct {
	s        *Scheduler
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a scheduler delivering task bodies through submit.
func New(submit func(func())) *Scheduler {
	return &Scheduler{
		submit: submit,
		tasks:  make(map[*Task]struct{}),
	}
}

// After runs fn once after d, unless stopped first.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := s.track()
	if t == nil {
		return &Task{stop: make(chan struct{})}
	}
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.submit(fn)
		case <-t.stop:
		}
		s.untrack(t)
	}()
	return t
}

// Every runs fn each period until the task is stopped.
func (s *Scheduler) Every(period time.Duration, fn func()) *Task {
	t := s.track()
	if t == nil {
		return &Task{stop: make(chan struct{})}
	}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.submit(fn)
			case <-t.stop:
				s.untrack(t)
				return
			}
		}
	}()
	return t
}

// Stop cancels the task. Safe to call more than once, and safe to call on
// a task that already fired.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// StopAll cancels every outstanding task and refuses new ones. Called on
// hub shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	s.closed = true
	tasks := make([]*Task, 0, len(s.tasks))
	for t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()
	for _, t := range tasks {
		t.Stop()
	}
}

func (s *Scheduler) track() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	t := &Task{s: s, stop: make(chan struct{})}
	s.tasks[t] = struct{}{}
	return t
}

func (s *Scheduler) untrack(t *Task) {
	s.mu.Lock()
	delete(s.tasks, t)
	s.mu.Unlock()
}
