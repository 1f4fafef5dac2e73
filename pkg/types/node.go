// pkg/types/node.go
package types

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// NetworkAddress is the host and service port of a node. It is a value type
// and cannot be changed once built.
type NetworkAddress struct {
	host string
	port int
}

func NewNetworkAddress(host string, port int) NetworkAddress {
	return NetworkAddress{host: strings.TrimSpace(host), port: port}
}

func (a NetworkAddress) Host() string { return a.host }

func (a NetworkAddress) Port() int { return a.port }

func (a NetworkAddress) String() string {
	return net.JoinHostPort(a.host, strconv.Itoa(a.port))
}

// URL builds the http URL of an endpoint served by the node at a.
func (a NetworkAddress) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + a.String() + path
}

// GenesisInfo records where the genesis node of the network lives.
type GenesisInfo struct {
	Address   string
	Self      bool
	LearnedAt time.Time
}

func NewGenesisInfo(address string, self bool) *GenesisInfo {
	return &GenesisInfo{
		Address:   strings.TrimSpace(address),
		Self:      self,
		LearnedAt: time.Now(),
	}
}
