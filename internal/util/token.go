package util

import "github.com/google/uuid"

// NewOpaqueToken returns a random v4 UUID string for one-shot email links.
func NewOpaqueToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidOpaqueToken reports whether token has the shape NewOpaqueToken produces.
func ValidOpaqueToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
