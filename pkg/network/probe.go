package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/busybox42/beacon/pkg/types"
)

// HTTPProbe implements Prober over the node HTTP endpoints.
type HTTPProbe struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPProbe(client *http.Client, timeout time.Duration) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = aliveTimeout
	}
	return &HTTPProbe{
		client:  client,
		timeout: timeout,
	}
}

// IsAlive reports true only when the candidate answers /isalive with a 2xx
// status inside the probe timeout.
func (p *HTTPProbe) IsAlive(ctx context.Context, addr types.NetworkAddress) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(AlivePath), nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxGenesisBody))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// FetchGenesis asks a live peer for the genesis address it knows about.
func (p *HTTPProbe) FetchGenesis(ctx context.Context, addr types.NetworkAddress) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, genesisTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.URL(GenesisPath), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("genesis request to %s failed: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("genesis request to %s returned %s", addr, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGenesisBody))
	if err != nil {
		return "", fmt.Errorf("failed to read genesis from %s: %w", addr, err)
	}

	genesis := strings.TrimSpace(string(body))
	if genesis == "" {
		return "", errors.New("peer returned an empty genesis address")
	}
	if net.ParseIP(genesis) == nil {
		return "", fmt.Errorf("peer returned invalid genesis address %q", genesis)
	}
	return genesis, nil
}
