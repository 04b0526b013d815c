package util

import "github.com/google/uuid"

// NewID returns a random UUIDv4 string with the given prefix, e.g. "sess_<uuid>".
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
