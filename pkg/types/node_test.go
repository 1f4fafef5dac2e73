package types

import (
	"testing"
	"time"
)

func TestNewNetworkAddress(t *testing.T) {
	addr := NewNetworkAddress(" 192.168.1.10 ", 9999)

	if addr.Host() != "192.168.1.10" {
		t.Errorf("Expected host 192.168.1.10, got %q", addr.Host())
	}
	if addr.Port() != 9999 {
		t.Errorf("Expected port 9999, got %d", addr.Port())
	}
	if addr.String() != "192.168.1.10:9999" {
		t.Errorf("Expected 192.168.1.10:9999, got %s", addr.String())
	}
}

func TestNetworkAddressURL(t *testing.T) {
	addr := NewNetworkAddress("10.0.0.4", 9999)

	tests := []struct {
		path string
		want string
	}{
		{"/isalive", "http://10.0.0.4:9999/isalive"},
		{"genesis-info", "http://10.0.0.4:9999/genesis-info"},
	}

	for _, tt := range tests {
		if got := addr.URL(tt.path); got != tt.want {
			t.Errorf("URL(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestNewGenesisInfo(t *testing.T) {
	info := NewGenesisInfo("192.168.1.2\n", false)

	if info.Address != "192.168.1.2" {
		t.Errorf("Expected trimmed address, got %q", info.Address)
	}
	if info.Self {
		t.Error("Learned genesis should not be marked as self")
	}
	if time.Since(info.LearnedAt) > time.Second {
		t.Error("LearnedAt timestamp is not recent")
	}
}
