package proto

import "encoding/json"

// Verifier is a payload predicate for one command tag. It must not panic
// and must not have side effects; malformed input simply fails it.
type Verifier func(raw json.RawMessage) bool

var verifiers = map[string]Verifier{}

// RegisterVerifier binds a payload predicate to a command tag. Registering
// the same tag twice is a startup configuration error and panics.
func RegisterVerifier(command string, v Verifier) {
	if _, dup := verifiers[command]; dup {
		panic("proto: verifier already registered for command " + command)
	}
	verifiers[command] = v
}

// VerifyPayload runs the registered predicate for a command tag.
// Unknown commands are rejected.
func VerifyPayload(command string, raw json.RawMessage) bool {
	v, ok := verifiers[command]
	if !ok {
		return false
	}
	return v(raw)
}

// shape builds a Verifier that accepts any payload unmarshalling into T
// and passing the optional extra predicate.
func shape[T any](extra func(T) bool) Verifier {
	return func(raw json.RawMessage) bool {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return false
		}
		if extra != nil {
			return extra(v)
		}
		return true
	}
}
