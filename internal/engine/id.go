package engine

import "github.com/google/uuid"

// generateID names a session locally when the backend did not.
func generateID() string {
	return uuid.New().String()
}
