// Package store persists the genesis address and the known peer list.
package store

import (
	"fmt"
	"strings"

	"github.com/busybox42/beacon/pkg/config"
)

// Registry is durable storage for what a node learned about the network.
// It does not serialise writers; callers avoid concurrent writes to the
// same key.
type Registry interface {
	Save(address string) error
	// Load returns the stored genesis address and whether one exists.
	Load() (string, bool, error)
	SaveList(addresses []string) error
	LoadList() ([]string, error)
	Close() error
}

// Open builds the registry backend named in cfg.
func Open(cfg config.RegistryConfig) (Registry, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFile(cfg.GenesisPath, cfg.NodeListPath), nil
	case config.BackendSQLite:
		return NewSQLite(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// cleanList trims entries and drops blanks.
func cleanList(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
