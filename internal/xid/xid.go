package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random 128-bit identifier tagged with prefix, e.g.
// "prod-3f2c...". Uniqueness is the only contract.
func New(prefix string) string {
	id := uuid.New()
	if prefix == "" {
		return id.String()
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
