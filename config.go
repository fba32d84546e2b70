// Copyright 2025 Agora Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agora

import (
	"io"
	"log/slog"
	"time"

	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/staking"
	"github.com/agoralabs-io/agora/types"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultTokenSymbol   = "AGORA"
	defaultTokenDecimals = 6
)

type Config struct {
	logger               *slog.Logger
	ledger               ledger.Ledger
	promRegistry         prometheus.Registerer
	now                  types.NowFunc
	dataDir              string
	tokenSymbol          string
	tokenDecimals        uint32
	penaltyRateBps       int64
	penaltyDestination   staking.PenaltyDestination
	votingWindow         time.Duration
	quorumBps            int64
	approvalThresholdBps int64
	minProposalPower     types.Amount
	rewardIntervalDays   uint32
}

type ConfigOptionFunc func(*Config)

func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tokenSymbol:   defaultTokenSymbol,
		tokenDecimals: defaultTokenDecimals,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithLedger supplies an external token ledger. When unset, an in-memory
// ledger is created from the configured symbol and decimals.
func WithLedger(l ledger.Ledger) ConfigOptionFunc {
	return func(c *Config) {
		c.ledger = l
	}
}

func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithNowFunc overrides the time source, mostly for deterministic tests
func WithNowFunc(now types.NowFunc) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}

func WithTokenSymbol(symbol string) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenSymbol = symbol
	}
}

func WithTokenDecimals(decimals uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenDecimals = decimals
	}
}

// WithPenaltyRate sets the early-unstake penalty in basis points. Zero
// means unset and selects the default of 1000 bps
func WithPenaltyRate(bps int64) ConfigOptionFunc {
	return func(c *Config) {
		c.penaltyRateBps = bps
	}
}

func WithPenaltyDestination(
	dest staking.PenaltyDestination,
) ConfigOptionFunc {
	return func(c *Config) {
		c.penaltyDestination = dest
	}
}

// WithVotingWindow sets how long proposals accept votes. Zero means unset
// and selects the default of 7 days
func WithVotingWindow(window time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.votingWindow = window
	}
}

// WithQuorum sets the quorum requirement in basis points of the total
// voting power at proposal creation. Zero means unset and selects the
// default of 3000 bps; a quorum-free deployment is not expressible
func WithQuorum(bps int64) ConfigOptionFunc {
	return func(c *Config) {
		c.quorumBps = bps
	}
}

// WithApprovalThreshold sets the for/(for+against) ratio in basis points
// a proposal must strictly exceed to pass. Zero means unset and selects
// the default of 5000 bps
func WithApprovalThreshold(bps int64) ConfigOptionFunc {
	return func(c *Config) {
		c.approvalThresholdBps = bps
	}
}

// WithMinProposalPower sets the voting power required to create proposals.
// Zero means unset and selects the default of 1 minor unit
func WithMinProposalPower(power types.Amount) ConfigOptionFunc {
	return func(c *Config) {
		c.minProposalPower = power
	}
}

// WithRewardInterval sets the nominal spacing between reward distributions
// in days. Zero means unset and selects the default of 30 days
func WithRewardInterval(days uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardIntervalDays = days
	}
}
