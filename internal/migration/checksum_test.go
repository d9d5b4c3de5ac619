package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateChecksum(t *testing.T) {
	checksum := CalculateChecksum("CREATE TABLE foo (id INT PRIMARY KEY);\n")
	assert.Len(t, checksum, 64) // SHA-256 hex
}

func TestCalculateChecksum_LineEndingsNormalizedFirst(t *testing.T) {
	lf := NormalizeContent("CREATE TABLE foo (\n    id INT\n);\n")
	crlf := NormalizeContent("CREATE TABLE foo (\r\n    id INT\r\n);\r\n")

	assert.Equal(t, CalculateChecksum(lf), CalculateChecksum(crlf))
}

func TestCalculateChecksum_DifferentContent(t *testing.T) {
	c1 := CalculateChecksum("CREATE TABLE foo (id INT);")
	c2 := CalculateChecksum("CREATE TABLE bar (id INT);")
	assert.NotEqual(t, c1, c2)
}
