package config

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenAlphabet = "0123456789abcdef"
	tokenLength   = 32
)

// GenerateToken returns a random 32-character hex token, suitable for API
// tokens that need to be unique and unguessable.
func GenerateToken() (string, error) {
	return gonanoid.Generate(tokenAlphabet, tokenLength)
}
