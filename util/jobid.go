package util

import "github.com/google/uuid"

// NewJobID returns a fresh random identifier for a build job, used to
// correlate log lines and BuildStats across a single Rebuild or
// UpdateFiles call.
func NewJobID() string {
	return uuid.NewString()
}
