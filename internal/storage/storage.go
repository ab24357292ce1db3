// Package storage holds the durable key-value backends the calendar
// persists its event index to. The contract is intentionally narrow:
// the whole JSON-serialized index is written and read as one value, with
// no partial updates and no transactions. A multi-instance deployment
// therefore races last-write-wins; that is an accepted limitation.
package storage

import (
	"context"
	"fmt"
)

// Backend is a durable store for a single opaque payload.
//
// Load returns (nil, nil) when nothing has been saved yet; callers treat
// that the same as an empty index. Save replaces the payload wholesale.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Drivers accepted in configuration.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open constructs the backend named by driver at the given path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverFile, "":
		return NewFile(path), nil
	case DriverSQLite:
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
