package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// File stores the genesis IP as a single line in one file and the peer
// list one address per line in another. Writes replace the file atomically.
type File struct {
	genesisPath  string
	nodeListPath string
}

func NewFile(genesisPath, nodeListPath string) *File {
	return &File{
		genesisPath:  genesisPath,
		nodeListPath: nodeListPath,
	}
}

func (f *File) Save(address string) error {
	return writeAtomic(f.genesisPath, []byte(strings.TrimSpace(address)))
}

func (f *File) Load() (string, bool, error) {
	data, err := os.ReadFile(f.genesisPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read genesis config: %w", err)
	}

	address := strings.TrimSpace(string(data))
	return address, address != "", nil
}

func (f *File) SaveList(addresses []string) error {
	return writeAtomic(f.nodeListPath, []byte(strings.Join(cleanList(addresses), "\n")))
}

func (f *File) LoadList() ([]string, error) {
	data, err := os.ReadFile(f.nodeListPath)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read node list: %w", err)
	}
	return cleanList(strings.Split(string(data), "\n")), nil
}

func (f *File) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
