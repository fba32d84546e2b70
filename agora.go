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
	"fmt"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/economics"
	"github.com/agoralabs-io/agora/event"
	"github.com/agoralabs-io/agora/governance"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/rewards"
	"github.com/agoralabs-io/agora/staking"
)

// Agora wires the token ledger, stake registry, rewards distributor, and
// governance engine into one participation economy. All components share a
// single event bus and database.
type Agora struct {
	config      Config
	eventBus    *event.EventBus
	db          *database.Database
	ledger      ledger.Ledger
	registry    *staking.Registry
	distributor *rewards.Distributor
	engine      *governance.Engine
}

func New(cfg Config) (*Agora, error) {
	eventBus := event.NewEventBus(cfg.promRegistry)
	a := &Agora{
		config:   cfg,
		eventBus: eventBus,
	}
	if cfg.ledger != nil {
		a.ledger = cfg.ledger
	} else {
		a.ledger = ledger.NewMemLedger(cfg.tokenSymbol, cfg.tokenDecimals)
	}
	db, err := database.New(cfg.dataDir, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	registry, err := staking.NewRegistry(staking.RegistryConfig{
		Logger:             cfg.logger,
		Ledger:             a.ledger,
		DB:                 db,
		EventBus:           eventBus,
		PromRegistry:       cfg.promRegistry,
		Now:                cfg.now,
		PenaltyRateBps:     cfg.penaltyRateBps,
		PenaltyDestination: cfg.penaltyDestination,
	})
	if err != nil {
		a.closeDatabase()
		return nil, fmt.Errorf("failed to create stake registry: %w", err)
	}
	a.registry = registry
	distributor, err := rewards.NewDistributor(rewards.DistributorConfig{
		Logger:       cfg.logger,
		Ledger:       a.ledger,
		Stakes:       registry,
		DB:           db,
		EventBus:     eventBus,
		PromRegistry: cfg.promRegistry,
		Now:          cfg.now,
		IntervalDays: cfg.rewardIntervalDays,
	})
	if err != nil {
		a.closeDatabase()
		return nil, fmt.Errorf(
			"failed to create rewards distributor: %w",
			err,
		)
	}
	a.distributor = distributor
	engine, err := governance.NewEngine(governance.EngineConfig{
		Logger:               cfg.logger,
		Stakes:               registry,
		DB:                   db,
		EventBus:             eventBus,
		PromRegistry:         cfg.promRegistry,
		Now:                  cfg.now,
		VotingWindow:         cfg.votingWindow,
		QuorumBps:            cfg.quorumBps,
		ApprovalThresholdBps: cfg.approvalThresholdBps,
		MinProposalPower:     cfg.minProposalPower,
	})
	if err != nil {
		a.closeDatabase()
		return nil, fmt.Errorf(
			"failed to create governance engine: %w",
			err,
		)
	}
	a.engine = engine
	return a, nil
}

// Ledger returns the token ledger
func (a *Agora) Ledger() ledger.Ledger {
	return a.ledger
}

// Stakes returns the stake registry
func (a *Agora) Stakes() *staking.Registry {
	return a.registry
}

// Rewards returns the rewards distributor
func (a *Agora) Rewards() *rewards.Distributor {
	return a.distributor
}

// Governance returns the governance engine
func (a *Agora) Governance() *governance.Engine {
	return a.engine
}

// EventBus returns the shared event bus
func (a *Agora) EventBus() *event.EventBus {
	return a.eventBus
}

// Database returns the underlying database
func (a *Agora) Database() *database.Database {
	return a.db
}

// Projector returns an economics projector anchored at the ledger's current
// circulating supply. Projections are pure; the live system is unaffected.
func (a *Agora) Projector() (*economics.Projector, error) {
	return economics.NewProjector(a.ledger.CirculatingSupply())
}

// Close releases the database. Component state already persisted remains
// intact and is restored on the next New with the same data directory.
func (a *Agora) Close() error {
	return a.closeDatabase()
}

func (a *Agora) closeDatabase() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
