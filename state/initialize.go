package state

import (
	"time"

	"dbfeed/book"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Books: book.NewCache(),
	}
}
