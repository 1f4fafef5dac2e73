package main

import (
	"fmt"
	"net/http"

	"github.com/busybox42/beacon/pkg/config"
	"github.com/busybox42/beacon/pkg/crypto"
	"github.com/busybox42/beacon/pkg/network"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
}

func rootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "beacon",
		Short:         "Genesis discovery and signed command exchange for a LAN node network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to beacon.yaml")

	root.AddCommand(
		serveCommand(a),
		scanCommand(a),
		signCommand(a),
		verifyCommand(a),
		sendCommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.NewLogger()
	if path != "" {
		a.log.WithField("path", path).Debug("Loaded config")
	}
	return nil
}

func (a *app) authenticator() *crypto.Authenticator {
	return crypto.NewAuthenticator(a.cfg.Keys.PrivateKey, a.cfg.Keys.PublicKey)
}

func (a *app) resolver() *network.InterfaceResolver {
	return network.NewInterfaceResolver(a.cfg.Node.PreferredInterface, network.SystemInterfaces, a.log)
}

func (a *app) httpClient() (*http.Client, error) {
	client, err := network.NewHTTPClient(a.cfg.Node.Proxy)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}
	return client, nil
}

func (a *app) scanner() (*network.Scanner, error) {
	client, err := a.httpClient()
	if err != nil {
		return nil, err
	}
	probe := network.NewHTTPProbe(client, a.cfg.Scan.Timeout.Duration())
	scanner := network.NewScanner(network.ScannerConfig{
		Port:        a.cfg.Node.Port,
		FirstHost:   a.cfg.Scan.FirstHost,
		LastHost:    a.cfg.Scan.LastHost,
		Concurrency: a.cfg.Scan.Concurrency,
	}, a.resolver(), probe, a.log)
	return scanner, nil
}
