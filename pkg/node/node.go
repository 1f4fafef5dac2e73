// Package node ties discovery, the registry and the peer list together for a
// single running node.
package node

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/busybox42/beacon/internal/store"
	"github.com/busybox42/beacon/pkg/network"
	"github.com/busybox42/beacon/pkg/protocol"
	"github.com/busybox42/beacon/pkg/server"
	"github.com/busybox42/beacon/pkg/types"
	"github.com/sirupsen/logrus"
)

// Scanner finds the genesis of an existing network, or nil if there is none.
type Scanner interface {
	Scan(ctx context.Context) (*types.GenesisInfo, error)
}

// Node holds what this process knows about the network. Registry writes
// go through Node so there is a single writer per process.
type Node struct {
	registry store.Registry
	resolver network.Resolver
	scanner  Scanner
	log      *logrus.Logger

	mu      sync.RWMutex
	localIP string
	genesis *types.GenesisInfo
	peers   []string
}

func New(registry store.Registry, resolver network.Resolver, scanner Scanner, log *logrus.Logger) *Node {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Node{
		registry: registry,
		resolver: resolver,
		scanner:  scanner,
		log:      log,
	}
}

// Bootstrap settles the genesis address. A persisted address is reused as
// is; otherwise the subnet is scanned and a miss makes this node genesis.
func (n *Node) Bootstrap(ctx context.Context) (*types.GenesisInfo, error) {
	localIP, _, err := n.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	peers, err := n.registry.LoadList()
	if err != nil {
		return nil, fmt.Errorf("load node list: %w", err)
	}

	n.mu.Lock()
	n.localIP = localIP
	n.peers = peers
	n.mu.Unlock()

	info, err := n.resolveGenesis(ctx, localIP)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.genesis = info
	n.mu.Unlock()

	if !info.Self {
		if _, err := n.AddPeer(info.Address); err != nil {
			return nil, err
		}
	}

	n.log.WithFields(logrus.Fields{
		"genesis": info.Address,
		"self":    info.Self,
		"local":   localIP,
	}).Info("Bootstrap complete")
	return info, nil
}

func (n *Node) resolveGenesis(ctx context.Context, localIP string) (*types.GenesisInfo, error) {
	address, ok, err := n.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("load genesis config: %w", err)
	}
	if ok {
		n.log.WithField("genesis", address).Info("Using persisted genesis node")
		return types.NewGenesisInfo(address, address == localIP), nil
	}

	found, err := n.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan network: %w", err)
	}

	info := found
	if info == nil {
		n.log.Info("No genesis node found, this node becomes genesis")
		info = types.NewGenesisInfo(localIP, true)
	}

	if err := n.registry.Save(info.Address); err != nil {
		return nil, fmt.Errorf("save genesis config: %w", err)
	}
	return info, nil
}

// Rescan runs a fresh scan and overwrites the stored genesis on a hit. A
// learned genesis is added to the peer list like in Bootstrap.
func (n *Node) Rescan(ctx context.Context) (*types.GenesisInfo, error) {
	found, err := n.scanner.Scan(ctx)
	if err != nil || found == nil {
		return nil, err
	}

	n.mu.Lock()
	if err := n.registry.Save(found.Address); err != nil {
		n.mu.Unlock()
		return nil, fmt.Errorf("save genesis config: %w", err)
	}
	n.genesis = found
	n.mu.Unlock()

	if !found.Self {
		if _, err := n.AddPeer(found.Address); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (n *Node) Genesis() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.genesis == nil {
		return "", false
	}
	return n.genesis.Address, true
}

func (n *Node) LocalIP() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.localIP
}

func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, len(n.peers))
	copy(out, n.peers)
	return out
}

// AddPeer records address in the peer list and persists the list when it
// changed. Self and duplicates are ignored.
func (n *Node) AddPeer(address string) (bool, error) {
	address = strings.TrimSpace(address)
	if net.ParseIP(address) == nil {
		return false, fmt.Errorf("invalid peer address %q", address)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if address == n.localIP {
		return false, nil
	}
	for _, p := range n.peers {
		if p == address {
			return false, nil
		}
	}

	updated := append(append([]string(nil), n.peers...), address)
	if err := n.registry.SaveList(updated); err != nil {
		return false, fmt.Errorf("save node list: %w", err)
	}
	n.peers = updated
	return true, nil
}

// HandleCommand is the default handler for verified commands. Commands are
// not executed; the sender is recorded as a peer when its claimed ip matches
// the address the command arrived from.
func (n *Node) HandleCommand(ctx context.Context, cmd *protocol.SignedCommand) error {
	entry := n.log.WithFields(logrus.Fields{
		"sender":  cmd.IP,
		"command": cmd.Command,
	})
	entry.Info("Accepted signed command")

	remote, ok := server.RemoteHost(ctx)
	if !ok {
		entry.Warn("Command has no remote address, not recording sender")
		return nil
	}
	sender := net.ParseIP(strings.TrimSpace(cmd.IP))
	if sender == nil || !sender.Equal(net.ParseIP(remote)) {
		entry.WithField("remote", remote).Warn("Command sender does not match remote address, not recording it")
		return nil
	}

	added, err := n.AddPeer(remote)
	if err != nil {
		return err
	}
	if added {
		n.log.WithField("peer", remote).Info("Recorded new peer")
	}
	return nil
}
