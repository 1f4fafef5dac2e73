package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/busybox42/beacon/pkg/client"
	"github.com/busybox42/beacon/pkg/types"
	"github.com/spf13/cobra"
)

const sendTimeout = 10 * time.Second

func sendCommand(a *app) *cobra.Command {
	var (
		fromIP string
		port   int
	)
	c := &cobra.Command{
		Use:   "send <peer-ip> <command>",
		Short: "Sign a command and submit it to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			if net.ParseIP(args[0]) == nil {
				return fmt.Errorf("invalid peer address %q", args[0])
			}
			if port == 0 {
				port = a.cfg.Node.Port
			}

			if fromIP == "" {
				local, _, err := a.resolver().Resolve()
				if err != nil {
					return err
				}
				fromIP = local
			}

			httpClient, err := a.httpClient()
			if err != nil {
				return err
			}
			cl := client.New(httpClient, a.authenticator(), fromIP, a.log)

			ctx, cancel := context.WithTimeout(c.Context(), sendTimeout)
			defer cancel()
			if err := cl.Send(ctx, types.NewNetworkAddress(args[0], port), args[1]); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "accepted")
			return nil
		},
	}
	c.Flags().StringVar(&fromIP, "from", "", "sender address placed in the command (defaults to the resolved local address)")
	c.Flags().IntVar(&port, "port", 0, "peer port (defaults to node.port)")
	return c
}
