package hash

import "golang.org/x/crypto/bcrypt"

// HashPassword embeds a random per-call salt in the stored value.
func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// CheckPassword reports whether password matches the stored hash.
// Malformed stored values are treated as a mismatch, never an error.
func CheckPassword(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
