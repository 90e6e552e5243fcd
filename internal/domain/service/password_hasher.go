// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for password hashing and verification.
type PasswordHasher interface {
	// Hash generates a salted digest from a plaintext password. Two calls with
	// the same input produce different digests.
	Hash(password string) (string, error)

	// Check reports whether password matches hash. A malformed hash never matches.
	Check(password, hash string) bool
}
