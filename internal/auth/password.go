package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost 10 keeps room creation fast enough while still making offline
// guessing expensive.
const bcryptCost = 10

// HashRoomPassword hashes a secret channel's creation-time password.
func HashRoomPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash room password: %w", err)
	}
	return string(hash), nil
}

// CheckRoomPassword reports whether a supplied password matches the
// stored hash.
func CheckRoomPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
