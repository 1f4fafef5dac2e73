package node

import (
	"context"
	"errors"
	"testing"

	"github.com/busybox42/beacon/internal/store"
	"github.com/busybox42/beacon/pkg/network"
	"github.com/busybox42/beacon/pkg/protocol"
	"github.com/busybox42/beacon/pkg/server"
	"github.com/busybox42/beacon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	local string
	err   error
}

func (r staticResolver) Resolve() (string, string, error) {
	if r.err != nil {
		return "", "", r.err
	}
	prefix, err := network.SubnetPrefix(r.local)
	return r.local, prefix, err
}

type fakeScanner struct {
	result *types.GenesisInfo
	err    error
	calls  int
}

func (s *fakeScanner) Scan(ctx context.Context) (*types.GenesisInfo, error) {
	s.calls++
	return s.result, s.err
}

func TestBootstrapLearnsGenesis(t *testing.T) {
	reg := store.NewLocal()
	scanner := &fakeScanner{result: types.NewGenesisInfo("192.168.1.2", false)}
	n := New(reg, staticResolver{local: "192.168.1.5"}, scanner, nil)

	info, err := n.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.2", info.Address)
	assert.False(t, info.Self)
	assert.Equal(t, 1, scanner.calls)

	saved, ok, err := reg.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.2", saved)

	peers, err := reg.LoadList()
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.2"}, peers)

	genesis, ok := n.Genesis()
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.2", genesis)
	assert.Equal(t, "192.168.1.5", n.LocalIP())
}

func TestBootstrapSelfElects(t *testing.T) {
	reg := store.NewLocal()
	n := New(reg, staticResolver{local: "192.168.1.5"}, &fakeScanner{}, nil)

	info, err := n.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Self)
	assert.Equal(t, "192.168.1.5", info.Address)

	saved, _, err := reg.Load()
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5", saved)
	assert.Empty(t, n.Peers())
}

func TestBootstrapUsesPersistedGenesis(t *testing.T) {
	reg := store.NewLocal()
	require.NoError(t, reg.Save("10.0.0.1"))
	require.NoError(t, reg.SaveList([]string{"10.0.0.1", "10.0.0.7"}))
	scanner := &fakeScanner{result: types.NewGenesisInfo("10.0.0.99", false)}
	n := New(reg, staticResolver{local: "10.0.0.7"}, scanner, nil)

	info, err := n.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", info.Address)
	assert.Equal(t, 0, scanner.calls, "persisted genesis should skip the scan")
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.7"}, n.Peers())
}

func TestBootstrapErrors(t *testing.T) {
	n := New(store.NewLocal(), staticResolver{err: network.ErrNoInterface}, &fakeScanner{}, nil)
	_, err := n.Bootstrap(context.Background())
	assert.ErrorIs(t, err, network.ErrNoInterface)

	scanErr := errors.New("boom")
	n = New(store.NewLocal(), staticResolver{local: "10.0.0.7"}, &fakeScanner{err: scanErr}, nil)
	_, err = n.Bootstrap(context.Background())
	assert.ErrorIs(t, err, scanErr)
}

func TestRescanOverwritesGenesis(t *testing.T) {
	reg := store.NewLocal()
	scanner := &fakeScanner{}
	n := New(reg, staticResolver{local: "10.0.0.7"}, scanner, nil)

	_, err := n.Bootstrap(context.Background())
	require.NoError(t, err)

	// A miss leaves the stored genesis alone.
	info, err := n.Rescan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info)
	saved, _, _ := reg.Load()
	assert.Equal(t, "10.0.0.7", saved)

	scanner.result = types.NewGenesisInfo("10.0.0.1", false)
	info, err = n.Rescan(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	saved, _, _ = reg.Load()
	assert.Equal(t, "10.0.0.1", saved)

	genesis, _ := n.Genesis()
	assert.Equal(t, "10.0.0.1", genesis)
	assert.Equal(t, []string{"10.0.0.1"}, n.Peers(), "learned genesis joins the peer list")
	peers, err := reg.LoadList()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, peers)
}

func TestAddPeer(t *testing.T) {
	reg := store.NewLocal()
	n := New(reg, staticResolver{local: "10.0.0.7"}, &fakeScanner{}, nil)
	_, err := n.Bootstrap(context.Background())
	require.NoError(t, err)

	added, err := n.AddPeer("10.0.0.8")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = n.AddPeer(" 10.0.0.8 ")
	require.NoError(t, err)
	assert.False(t, added, "duplicate should be ignored")

	added, err = n.AddPeer("10.0.0.7")
	require.NoError(t, err)
	assert.False(t, added, "self should be ignored")

	_, err = n.AddPeer("not-an-ip")
	assert.Error(t, err)

	peers, err := reg.LoadList()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.8"}, peers)
}

func TestHandleCommandRecordsSender(t *testing.T) {
	reg := store.NewLocal()
	n := New(reg, staticResolver{local: "10.0.0.7"}, &fakeScanner{}, nil)
	_, err := n.Bootstrap(context.Background())
	require.NoError(t, err)

	ctx := server.WithRemoteHost(context.Background(), "10.0.0.9")
	require.NoError(t, n.HandleCommand(ctx, protocol.NewSignedCommand("10.0.0.9", "START")))
	require.NoError(t, n.HandleCommand(ctx, protocol.NewSignedCommand("garbage", "START")))

	assert.Equal(t, []string{"10.0.0.9"}, n.Peers())
}

func TestHandleCommandIgnoresForgedSender(t *testing.T) {
	reg := store.NewLocal()
	n := New(reg, staticResolver{local: "10.0.0.7"}, &fakeScanner{}, nil)
	_, err := n.Bootstrap(context.Background())
	require.NoError(t, err)

	ctx := server.WithRemoteHost(context.Background(), "10.0.0.9")
	for _, ip := range []string{"203.0.0.1", "203.0.0.2", "203.0.0.3"} {
		require.NoError(t, n.HandleCommand(ctx, protocol.NewSignedCommand(ip, "START")))
	}
	// No transport address at all.
	require.NoError(t, n.HandleCommand(context.Background(), protocol.NewSignedCommand("10.0.0.9", "START")))

	assert.Empty(t, n.Peers())
	peers, err := reg.LoadList()
	require.NoError(t, err)
	assert.Empty(t, peers)
}
