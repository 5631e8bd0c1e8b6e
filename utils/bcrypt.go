package utils

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor for new hashes.
const passwordCost = bcrypt.DefaultCost + 2

// HashPassword hashes a plaintext credential for storage on a user row.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), passwordCost)
}

// ComparePassword checks a login attempt against the stored hash. The cost
// is encoded in the hash, so older hashes keep verifying after a cost bump.
func ComparePassword(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
