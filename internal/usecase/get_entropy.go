package usecase

import (
	"context"
	"fmt"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
)

// GetEntropy returns the installation seed owner keys are derived from
type GetEntropy struct {
	source  EntropySource
	version int
	salt    string
}

// NewGetEntropy creates a new GetEntropy use case
func NewGetEntropy(source EntropySource, cfg *config.RuntimeConfig) *GetEntropy {
	return &GetEntropy{
		source:  source,
		version: cfg.EntropyVersion,
		salt:    cfg.EntropySalt,
	}
}

// Run returns the seed for the configured version and salt
func (uc *GetEntropy) Run(ctx context.Context) ([]byte, error) {
	seed, err := uc.source.GetSeed(ctx, uc.version, uc.salt)
	if err != nil {
		return nil, fmt.Errorf("failed to get entropy: %w", err)
	}
	return seed, nil
}
