package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// ErrNotFound indicates nothing was ever saved.
var ErrNotFound = errors.New("configuration not found")

// Store keeps the configuration blob.
type Store interface {
	ReadBlob(ctx context.Context) ([]byte, error)
	WriteBlob(ctx context.Context, blob []byte) error
	Close() error
}

// NVS loads and saves the configuration through a Store.
type NVS struct {
	Store Store
}

// Load reads the configuration. When nothing was saved, the defaults
// are returned without error.
func (n *NVS) Load(ctx context.Context) (Configuration, error) {
	blob, err := n.Store.ReadBlob(ctx)
	if errors.Is(err, ErrNotFound) {
		glog.Info("no saved configuration, using defaults")
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read configuration: %w", err)
	}
	return DecodeBlob(blob), nil
}

// Save writes the configuration.
func (n *NVS) Save(ctx context.Context, c Configuration) error {
	if err := n.Store.WriteBlob(ctx, EncodeBlob(c)); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	glog.V(1).Infof("configuration saved: %s", c)
	return nil
}

// OpenStore opens a Store by location:
//
//	file:PATH    raw blob in a file
//	sqlite:PATH  SQLite database
//	mem:         in memory, lost on exit
//
// A location without scheme is a file path.
func OpenStore(ctx context.Context, location string) (Store, error) {
	scheme, path, found := strings.Cut(location, ":")
	if !found {
		scheme, path = "file", location
	}
	switch scheme {
	case "file":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLiteStore(ctx, path)
	case "mem":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown nvs scheme %q", scheme)
}
