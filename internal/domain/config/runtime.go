package config

import (
	"time"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

// StoreDriver selects the durable store backend
type StoreDriver string

const (
	StoreDriverFile     StoreDriver = "file"
	StoreDriverPostgres StoreDriver = "postgres"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	DataDir string
	RPCURL  string

	// Execution settings
	Debug          bool
	NonInteractive bool
	AutoApprove    bool // confirm approval prompts without asking
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Keyring policy
	AsyncRequests             bool
	SponsorshipNonceThreshold uint64
	ReceiptPollInterval       time.Duration

	// Entropy derivation inputs
	EntropyVersion int
	EntropySalt    string

	// Storage
	StoreDriver StoreDriver
	PostgresDSN string

	// JSON-RPC server
	ListenAddr string

	// Resolved chain table (built-ins merged with the chains file)
	ChainsFile string
	Chains     map[uint64]domain.ChainDefaults
}
