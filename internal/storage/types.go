package storage

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrDisabled   = errors.New("storage disabled")
	ErrClosed     = errors.New("storage closed")
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines delivery log + snapshot files next to Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord is one delivery attempt to one target.
type DeliveryRecord struct {
	ID      string    `json:"id"`
	Watcher string    `json:"watcher"`
	Target  string    `json:"target"`
	Chunks  int       `json:"chunks"`
	Sent    int       `json:"sent"`
	Bytes   int       `json:"bytes"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

var reKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

func validKey(key string) error {
	if !reKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
