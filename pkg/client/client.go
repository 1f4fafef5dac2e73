// Package client submits signed commands to peers.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/busybox42/beacon/pkg/metrics"
	"github.com/busybox42/beacon/pkg/network"
	"github.com/busybox42/beacon/pkg/protocol"
	"github.com/busybox42/beacon/pkg/types"
	"github.com/sirupsen/logrus"
)

// ErrCommandRejected means the peer could not verify the signature.
var ErrCommandRejected = errors.New("command rejected by peer")

type Client struct {
	http    *http.Client
	signer  protocol.Signer
	localIP string
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func New(httpClient *http.Client, signer protocol.Signer, localIP string, log *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		http:    httpClient,
		signer:  signer,
		localIP: localIP,
		log:     log,
	}
}

func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Send signs command and posts it to the peer. A signing failure is returned
// exactly as the signer reported it.
func (c *Client) Send(ctx context.Context, peer types.NetworkAddress, command string) error {
	cmd := protocol.NewSignedCommand(c.localIP, command)
	if err := cmd.SignWith(c.signer); err != nil {
		return err
	}

	body, err := cmd.Encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer.URL(network.CommandPath), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveSent(metrics.ResultFailed)
		return fmt.Errorf("failed to send command to %s: %w", peer, err)
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	entry := c.log.WithFields(logrus.Fields{
		"peer":    peer.String(),
		"command": command,
		"status":  resp.StatusCode,
	})

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.metrics.ObserveSent(metrics.ResultRejected)
		entry.Warn("Peer rejected command")
		return ErrCommandRejected
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.metrics.ObserveSent(metrics.ResultFailed)
		return fmt.Errorf("peer %s returned %s: %s", peer, resp.Status, strings.TrimSpace(string(reply)))
	}

	c.metrics.ObserveSent(metrics.ResultSent)
	entry.Info("Command delivered")
	return nil
}
