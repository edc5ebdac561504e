// Package storage provides named durable slots holding opaque snapshots.
package storage

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Load when nothing has been saved in the slot yet.
var ErrEmpty = errors.New("storage slot is empty")

// Slot is a single named durable value that is read whole and overwritten whole.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
