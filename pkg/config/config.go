// Package config loads the node configuration.
//
// Lookup order for the config file:
//  1. the path passed on the command line
//  2. $BEACON_CONFIG
//  3. ./beacon.yaml
//
// When no file is found the defaults are used unchanged.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath  = "BEACON_CONFIG"
	ConfigFileName = "beacon.yaml"
)

const (
	DefaultPort               = 9999
	DefaultPreferredInterface = "enp0s8"
	DefaultFirstHost          = 1
	DefaultLastHost           = 244
	DefaultProbeTimeout       = 100 * time.Millisecond
	DefaultConcurrency        = 32
	DefaultMaxConnections     = 128

	DefaultPrivateKeyPath = "./key/ca.pem"
	DefaultPublicKeyPath  = "./key/ca_public.pem"

	DefaultGenesisPath  = "./config/genesis_config.txt"
	DefaultNodeListPath = "./config/nodelist.txt"
	DefaultDatabasePath = "./data/beacon.db"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Scan     ScanConfig     `yaml:"scan"`
	Keys     KeyConfig      `yaml:"keys"`
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
}

type NodeConfig struct {
	Port               int    `yaml:"port"`
	PreferredInterface string `yaml:"preferred_interface"`
	MaxConnections     int    `yaml:"max_connections"`
	// Proxy is an optional socks5:// URL used for outbound requests.
	Proxy string `yaml:"proxy,omitempty"`
}

type ScanConfig struct {
	FirstHost   int      `yaml:"first_host"`
	LastHost    int      `yaml:"last_host"`
	Timeout     Duration `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
}

type KeyConfig struct {
	PrivateKey string `yaml:"private_key"`
	PublicKey  string `yaml:"public_key"`
}

type RegistryConfig struct {
	Backend      string `yaml:"backend"`
	GenesisPath  string `yaml:"genesis_path"`
	NodeListPath string `yaml:"node_list_path"`
	DatabasePath string `yaml:"database_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration reads a time.Duration from a YAML string such as "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config at path, or the first file found in the lookup
// order when path is empty. It returns the path actually used.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = findConfigPath()
	}
	if path == "" {
		return Default(), "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

func (c *Config) applyDefaults() {
	if c.Node.Port == 0 {
		c.Node.Port = DefaultPort
	}
	if c.Node.PreferredInterface == "" {
		c.Node.PreferredInterface = DefaultPreferredInterface
	}
	if c.Node.MaxConnections == 0 {
		c.Node.MaxConnections = DefaultMaxConnections
	}
	if c.Scan.FirstHost == 0 {
		c.Scan.FirstHost = DefaultFirstHost
	}
	if c.Scan.LastHost == 0 {
		c.Scan.LastHost = DefaultLastHost
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = Duration(DefaultProbeTimeout)
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = DefaultConcurrency
	}
	if c.Keys.PrivateKey == "" {
		c.Keys.PrivateKey = DefaultPrivateKeyPath
	}
	if c.Keys.PublicKey == "" {
		c.Keys.PublicKey = DefaultPublicKeyPath
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = BackendFile
	}
	if c.Registry.GenesisPath == "" {
		c.Registry.GenesisPath = DefaultGenesisPath
	}
	if c.Registry.NodeListPath == "" {
		c.Registry.NodeListPath = DefaultNodeListPath
	}
	if c.Registry.DatabasePath == "" {
		c.Registry.DatabasePath = DefaultDatabasePath
	}
	if c.Log.Level == "" {
		c.Log.Level = logrus.InfoLevel.String()
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Node.Port < 1 || c.Node.Port > 65535 {
		errs = append(errs, fmt.Errorf("node.port %d out of range", c.Node.Port))
	}
	if c.Scan.FirstHost < 1 || c.Scan.LastHost > 254 || c.Scan.FirstHost > c.Scan.LastHost {
		errs = append(errs, fmt.Errorf("scan host range %d..%d is invalid", c.Scan.FirstHost, c.Scan.LastHost))
	}
	if c.Scan.Timeout < 0 {
		errs = append(errs, errors.New("scan.timeout must be positive"))
	}
	if c.Scan.Concurrency < 1 {
		errs = append(errs, errors.New("scan.concurrency must be at least 1"))
	}
	switch c.Registry.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown registry backend %q", c.Registry.Backend))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log section. It writes to
// stderr; stdout carries command output.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func findConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		return ConfigFileName
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
