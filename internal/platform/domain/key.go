package domain

import (
	"strings"

	"github.com/google/uuid"
)

const DefaultAPIKeyPrefix = "pk_"

// NewAPIKey returns prefix followed by 32 lowercase hex characters from a random UUID.
func NewAPIKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultAPIKeyPrefix
	}
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
