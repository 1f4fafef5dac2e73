package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	keyGenesis  = "genesis"
	keyNodeList = "node_list"
)

// SQLite keeps the registry in a single key/value table.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS registry (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *SQLite) put(key, value string) error {
	_, err := s.db.Exec(`
	INSERT INTO registry (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM registry WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Save(address string) error {
	return s.put(keyGenesis, strings.TrimSpace(address))
}

func (s *SQLite) Load() (string, bool, error) {
	value, ok, err := s.get(keyGenesis)
	if err != nil || !ok {
		return "", false, err
	}
	return value, value != "", nil
}

func (s *SQLite) SaveList(addresses []string) error {
	return s.put(keyNodeList, strings.Join(cleanList(addresses), "\n"))
}

func (s *SQLite) LoadList() ([]string, error) {
	value, _, err := s.get(keyNodeList)
	if err != nil {
		return nil, err
	}
	return cleanList(strings.Split(value, "\n")), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
