package pkg

import "github.com/google/uuid"

// GenerateGameID - generates a unique identifier for the game session.
func GenerateGameID() string {
	return uuid.NewString()
}
