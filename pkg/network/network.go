// pkg/network/network.go
package network

import (
	"context"

	"github.com/busybox42/beacon/pkg/types"
)

// Prober asks a single candidate whether a node runs there and, once it is
// known to be alive, which node it considers the genesis.
type Prober interface {
	IsAlive(ctx context.Context, addr types.NetworkAddress) bool
	FetchGenesis(ctx context.Context, addr types.NetworkAddress) (string, error)
}

// Resolver picks the local address and /24 prefix to scan.
type Resolver interface {
	Resolve() (localIP string, prefix string, err error)
}
