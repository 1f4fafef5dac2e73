package network

import "time"

const (
	aliveTimeout   = 100 * time.Millisecond
	genesisTimeout = 2 * time.Second
	maxGenesisBody = 256
	dialTimeout    = 5 * time.Second
	idleTimeout    = 30 * time.Second

	AlivePath    = "/isalive"
	GenesisPath  = "/genesis-info"
	NodeListPath = "/node-list"
	CommandPath  = "/add-block"
	MetricsPath  = "/metrics"
)
