package utils

import "github.com/google/uuid"

// GenerateID returns a new random identifier for extractions and stored files.
func GenerateID() string {
	return uuid.New().String()
}
