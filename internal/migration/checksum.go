package migration

import (
	"crypto/sha256"
	"fmt"
)

// CalculateChecksum returns the hex SHA-256 of already normalized content.
func CalculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
