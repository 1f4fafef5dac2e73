package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/busybox42/beacon/internal/store"
	"github.com/busybox42/beacon/pkg/metrics"
	"github.com/busybox42/beacon/pkg/node"
	"github.com/busybox42/beacon/pkg/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(a *app) *cobra.Command {
	var rescan time.Duration
	c := &cobra.Command{
		Use:   "serve",
		Short: "Discover or become genesis, then answer peers",
		RunE: func(c *cobra.Command, args []string) error {
			return a.serve(c.Context(), rescan)
		},
	}
	c.Flags().DurationVar(&rescan, "rescan", 0, "periodically rescan the subnet for a genesis node (0 disables)")
	return c
}

func (a *app) serve(ctx context.Context, rescan time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("beacon")

	scanner, err := a.scanner()
	if err != nil {
		return err
	}
	scanner.SetMetrics(m)

	registry, err := store.Open(a.cfg.Registry)
	if err != nil {
		return err
	}
	defer registry.Close()

	n := node.New(registry, a.resolver(), scanner, a.log)
	info, err := n.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if info.Self {
		a.log.Infof("This node (%s) is the genesis node", info.Address)
	} else {
		a.log.Infof("Genesis node is %s", info.Address)
	}

	srv := server.New(server.Config{
		Port:           a.cfg.Node.Port,
		MaxConnections: a.cfg.Node.MaxConnections,
	}, n, a.authenticator(), n, m, a.log)
	if err := srv.Start(); err != nil {
		return err
	}

	if rescan > 0 {
		go a.rescanLoop(ctx, n, rescan)
	}

	<-ctx.Done()
	a.log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) rescanLoop(ctx context.Context, n *node.Node, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := n.Rescan(ctx)
			if err != nil {
				a.log.WithError(err).Warn("Rescan failed")
				continue
			}
			if info != nil {
				a.log.WithField("genesis", info.Address).Debug("Rescan found genesis node")
			}
		}
	}
}
