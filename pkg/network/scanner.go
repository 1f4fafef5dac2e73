// pkg/network/scanner.go
package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/busybox42/beacon/pkg/metrics"
	"github.com/busybox42/beacon/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ScannerConfig struct {
	Port        int
	FirstHost   int
	LastHost    int
	Concurrency int
}

// Scanner looks for a live node on the local /24 and learns the genesis
// address from it.
type Scanner struct {
	config   ScannerConfig
	resolver Resolver
	prober   Prober
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

func NewScanner(config ScannerConfig, resolver Resolver, prober Prober, log *logrus.Logger) *Scanner {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		config:   config,
		resolver: resolver,
		prober:   prober,
		log:      log,
	}
}

func (s *Scanner) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Candidates lists prefix.first through prefix.last, leaving out self.
func Candidates(prefix, self string, first, last int) []string {
	if first > last {
		return nil
	}
	out := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		ip := fmt.Sprintf("%s.%d", prefix, i)
		if ip == self {
			continue
		}
		out = append(out, ip)
	}
	return out
}

// Scan returns the genesis learned from the first live peer, or nil when no
// peer answered and this node should become genesis itself. Only resolver
// failures and cancellation of ctx are returned as errors.
func (s *Scanner) Scan(ctx context.Context) (*types.GenesisInfo, error) {
	start := time.Now()

	localIP, prefix, err := s.resolver.Resolve()
	if err != nil {
		s.metrics.ObserveScan(metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	candidates := Candidates(prefix, localIP, s.config.FirstHost, s.config.LastHost)
	s.log.Infof("Scanning network range: %s.%d ~ %s.%d", prefix, s.config.FirstHost, prefix, s.config.LastHost)

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once  sync.Once
		found *types.GenesisInfo
	)

	g, gctx := errgroup.WithContext(scanCtx)
	g.SetLimit(s.config.Concurrency)

	for _, ip := range candidates {
		if gctx.Err() != nil {
			break
		}
		addr := types.NewNetworkAddress(ip, s.config.Port)
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			alive := s.prober.IsAlive(gctx, addr)
			s.metrics.ObserveProbe(alive)
			if !alive {
				return nil
			}

			s.log.WithField("peer", addr.Host()).Info("Found active node")
			genesis, err := s.prober.FetchGenesis(gctx, addr)
			if err != nil {
				s.log.WithError(err).WithField("peer", addr.Host()).Debug("Peer did not report a genesis")
				return nil
			}

			once.Do(func() {
				found = types.NewGenesisInfo(genesis, genesis == localIP)
				cancel()
			})
			return nil
		})
	}
	g.Wait()

	took := time.Since(start)
	if found != nil {
		s.metrics.ObserveScan(metrics.OutcomeFound, took)
		s.log.WithField("genesis", found.Address).Infof("Retrieved genesis node IP in %s", took)
		return found, nil
	}

	if err := ctx.Err(); err != nil {
		s.metrics.ObserveScan(metrics.OutcomeError, took)
		return nil, err
	}

	s.metrics.ObserveScan(metrics.OutcomeEmpty, took)
	s.log.Infof("Network scan complete in %s. No existing nodes found.", took)
	return nil, nil
}
