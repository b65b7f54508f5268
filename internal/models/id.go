package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a short random identifier, optionally prefixed ("trd_1f0c2a9b8e7d").
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
