package types

import (
	"time"
)

// Object describes one raw record in the store.
type Object struct {
	Key          string
	LastModified time.Time
}
