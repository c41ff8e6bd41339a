// Package crypto implements the credential digest shared by student PINs and
// teacher secrets: hex(sha256(salt || tag || secret)). The salt is global,
// generated once and persisted; credential classes are domain-separated by a
// role tag rather than by distinct salts.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Domain separation tags per credential class.
const (
	TagStudentPIN      = ""
	TagTeacherPIN      = "teacher:"
	TagTeacherPassword = "teacher-pw:"
)

// NewSalt returns a fresh random salt, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash digests a secret under the global salt and a role tag.
func Hash(secret, tag, salt string) string {
	sum := sha256.Sum256([]byte(salt + tag + secret))
	return hex.EncodeToString(sum[:])
}

// Verify compares a candidate secret against a stored digest in constant
// time. An empty stored digest never verifies.
func Verify(secret, tag, salt, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	candidate := Hash(secret, tag, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
