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

package staking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/event"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/types"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrStillLocked is returned when unstaking before the unlock
	// timestamp without force
	ErrStillLocked = errors.New("position is still locked")

	// ErrPositionActive is returned when staking while a position is
	// already active. Restaking is rejected by policy; callers must
	// unstake first.
	ErrPositionActive = errors.New("account already has an active position")

	// ErrNoPosition is returned when an operation requires an active
	// position and the account has none
	ErrNoPosition = errors.New("account has no active position")

	// ErrUnknownBooster is returned for booster kinds outside the closed set
	ErrUnknownBooster = errors.New("unknown booster kind")
)

// PenaltyDestination selects where early-exit penalties go
type PenaltyDestination string

const (
	// PenaltyDestinationBurn destroys the penalty, shrinking supply (default)
	PenaltyDestinationBurn PenaltyDestination = "burn"

	// PenaltyDestinationRewardPool credits the penalty to the reward pool
	// account, recycling it into future distributions
	PenaltyDestinationRewardPool PenaltyDestination = "reward-pool"
)

// Valid returns true for known penalty destinations
func (d PenaltyDestination) Valid() bool {
	switch d {
	case PenaltyDestinationBurn, PenaltyDestinationRewardPool:
		return true
	default:
		return false
	}
}

const (
	defaultPoolAccount       = "staking.pool"
	defaultRewardPoolAccount = "rewards.pool"
	defaultPenaltyRateBps    = 1000
)

// Position is one account's active stake. Voting power is always derived
// from principal and multiplier, never stored.
type Position struct {
	Account       string
	Principal     types.Amount
	LockDays      uint32
	MultiplierBps int64
	StakedAt      time.Time
	UnlockAt      time.Time
	Boosters      map[BoosterKind]int64
}

// VotingPower returns principal scaled by the time multiplier
func (p Position) VotingPower() types.Amount {
	return p.Principal.MulBps(p.MultiplierBps)
}

// BoostBps returns the additive sum of the position's booster bonuses in
// basis points
func (p Position) BoostBps() int64 {
	var total int64
	for _, bps := range p.Boosters {
		total += bps
	}
	return total
}

func (p Position) clone() Position {
	ret := p
	ret.Boosters = maps.Clone(p.Boosters)
	return ret
}

// UnstakeInfo describes the outcome of an unstake operation
type UnstakeInfo struct {
	Amount         types.Amount
	PenaltyApplied bool
	Penalty        types.Amount
	Final          types.Amount
}

// Stats is a point-in-time summary of the registry
type Stats struct {
	TotalStakers     int
	TotalStaked      types.Amount
	TotalVotingPower types.Amount
	AverageLockDays  float64
	StakingRatioBps  int64
}

// RegistryConfig holds configuration for the stake registry
type RegistryConfig struct {
	Logger       *slog.Logger
	Ledger       ledger.Ledger
	DB           *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Now          types.NowFunc
	// PoolAccount is the ledger account holding locked principal
	PoolAccount string
	// RewardPoolAccount receives redirected penalties
	RewardPoolAccount string
	// PenaltyRateBps is the early-unstake penalty. Zero means unset and
	// selects the default of 1000 bps
	PenaltyRateBps     int64
	PenaltyDestination PenaltyDestination
}

// Registry records one active stake position per account, derives voting
// power, and enforces lock and penalty rules. All mutating operations are
// serialized under a single registry lock; the ledger is only ever called
// from under it, and never calls back, so lock ordering is fixed.
type Registry struct {
	config    RegistryConfig
	logger    *slog.Logger
	positions map[string]*Position
	metrics   *registryMetrics
	mu        sync.RWMutex
}

// NewRegistry creates a stake registry, restoring persisted positions when
// a database is configured
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("no ledger configured")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PoolAccount == "" {
		cfg.PoolAccount = defaultPoolAccount
	}
	if cfg.RewardPoolAccount == "" {
		cfg.RewardPoolAccount = defaultRewardPoolAccount
	}
	if cfg.PenaltyRateBps == 0 {
		cfg.PenaltyRateBps = defaultPenaltyRateBps
	}
	if cfg.PenaltyRateBps < 0 || cfg.PenaltyRateBps > types.BpsDenominator {
		return nil, fmt.Errorf(
			"penalty rate out of range: %d bps",
			cfg.PenaltyRateBps,
		)
	}
	if cfg.PenaltyDestination == "" {
		cfg.PenaltyDestination = PenaltyDestinationBurn
	}
	if !cfg.PenaltyDestination.Valid() {
		return nil, fmt.Errorf(
			"unknown penalty destination: %s",
			cfg.PenaltyDestination,
		)
	}
	r := &Registry{
		config:    cfg,
		logger:    cfg.Logger,
		positions: make(map[string]*Position),
	}
	if cfg.PromRegistry != nil {
		r.metrics = &registryMetrics{}
		r.metrics.init(cfg.PromRegistry)
	}
	if cfg.DB != nil {
		if err := r.load(); err != nil {
			return nil, fmt.Errorf("restore stake positions: %w", err)
		}
	}
	r.updateMetrics()
	return r, nil
}

// PoolAccount returns the ledger account holding locked principal
func (r *Registry) PoolAccount() string {
	return r.config.PoolAccount
}

// Stake locks amount from the account's free balance for lockDays. At most
// one position may be active per account.
func (r *Registry) Stake(
	account string,
	amount types.Amount,
	lockDays uint32,
) (Position, error) {
	if amount <= 0 {
		return Position{}, fmt.Errorf(
			"stake %d: %w",
			amount,
			ledger.ErrInvalidAmount,
		)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.positions[account]; ok {
		return Position{}, fmt.Errorf(
			"stake for %s: %w",
			account,
			ErrPositionActive,
		)
	}
	if r.config.Ledger.Balance(account) < amount {
		return Position{}, fmt.Errorf(
			"stake %d for %s: %w",
			amount,
			account,
			ledger.ErrInsufficientBalance,
		)
	}
	if err := r.config.Ledger.Transfer(
		account,
		r.config.PoolAccount,
		amount,
	); err != nil {
		return Position{}, err
	}
	now := r.config.Now()
	pos := &Position{
		Account:       account,
		Principal:     amount,
		LockDays:      lockDays,
		MultiplierBps: MultiplierBps(lockDays),
		StakedAt:      now,
		UnlockAt:      now.AddDate(0, 0, int(lockDays)),
		Boosters:      make(map[BoosterKind]int64),
	}
	r.positions[account] = pos
	if err := r.persist(pos); err != nil {
		// Roll back so the failed call leaves no trace
		delete(r.positions, account)
		if err2 := r.config.Ledger.Transfer(
			r.config.PoolAccount,
			account,
			amount,
		); err2 != nil {
			return Position{}, fmt.Errorf(
				"unwind failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return Position{}, err
	}
	r.updateMetrics()
	r.logger.Info(
		"stake locked",
		"component", "staking",
		"account", account,
		"amount", int64(amount),
		"lock_days", lockDays,
		"voting_power", int64(pos.VotingPower()),
	)
	r.publish(event.StakedEventType, event.StakedEvent{
		Account:     account,
		Principal:   pos.Principal,
		LockDays:    lockDays,
		VotingPower: pos.VotingPower(),
		UnlockAt:    pos.UnlockAt,
	})
	return pos.clone(), nil
}

// Unstake withdraws amount from the account's position. Before the unlock
// timestamp it fails with ErrStillLocked unless force is set, in which case
// the configured penalty rate is deducted and routed to the configured
// destination. After unlock no penalty applies regardless of force.
func (r *Registry) Unstake(
	account string,
	amount types.Amount,
	force bool,
) (UnstakeInfo, error) {
	if amount <= 0 {
		return UnstakeInfo{}, fmt.Errorf(
			"unstake %d: %w",
			amount,
			ledger.ErrInvalidAmount,
		)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[account]
	if !ok {
		return UnstakeInfo{}, fmt.Errorf(
			"unstake for %s: %w",
			account,
			ErrNoPosition,
		)
	}
	if amount > pos.Principal {
		return UnstakeInfo{}, fmt.Errorf(
			"unstake %d exceeds principal %d: %w",
			amount,
			pos.Principal,
			ledger.ErrInsufficientBalance,
		)
	}
	locked := r.config.Now().Before(pos.UnlockAt)
	if locked && !force {
		return UnstakeInfo{}, fmt.Errorf(
			"unlocks at %s: %w",
			pos.UnlockAt.Format(time.RFC3339),
			ErrStillLocked,
		)
	}
	var penalty types.Amount
	if locked {
		penalty = amount.MulBps(r.config.PenaltyRateBps)
	}
	final := amount - penalty
	if final > 0 {
		if err := r.config.Ledger.Transfer(
			r.config.PoolAccount,
			account,
			final,
		); err != nil {
			return UnstakeInfo{}, err
		}
	}
	if penalty > 0 {
		var err error
		switch r.config.PenaltyDestination {
		case PenaltyDestinationRewardPool:
			err = r.config.Ledger.Transfer(
				r.config.PoolAccount,
				r.config.RewardPoolAccount,
				penalty,
			)
		default:
			err = r.config.Ledger.Burn(
				r.config.PoolAccount,
				penalty,
			)
		}
		if err != nil {
			// Return the withdrawn portion to the pool
			if final > 0 {
				if err2 := r.config.Ledger.Transfer(
					account,
					r.config.PoolAccount,
					final,
				); err2 != nil {
					return UnstakeInfo{}, fmt.Errorf(
						"unwind failed: %w: original error: %w",
						err2,
						err,
					)
				}
			}
			return UnstakeInfo{}, err
		}
	}
	pos.Principal -= amount
	var persistErr error
	if pos.Principal == 0 {
		delete(r.positions, account)
		if r.config.DB != nil {
			persistErr = r.config.DB.DeleteStakePosition(account)
		}
	} else {
		persistErr = r.persist(pos)
	}
	if persistErr != nil {
		// Ledger movements already applied; surface the error loudly
		// rather than guessing at a safe unwind across two stores
		r.logger.Error(
			"failed to persist position after unstake",
			"component", "staking",
			"account", account,
			"error", persistErr,
		)
		return UnstakeInfo{}, persistErr
	}
	r.updateMetrics()
	info := UnstakeInfo{
		Amount:         amount,
		PenaltyApplied: penalty > 0,
		Penalty:        penalty,
		Final:          final,
	}
	r.logger.Info(
		"stake withdrawn",
		"component", "staking",
		"account", account,
		"amount", int64(amount),
		"penalty", int64(penalty),
		"final", int64(final),
	)
	var remaining types.Amount
	if p, ok := r.positions[account]; ok {
		remaining = p.Principal
	}
	r.publish(event.UnstakedEventType, event.UnstakedEvent{
		Account:   account,
		Amount:    amount,
		Penalty:   penalty,
		Final:     final,
		Remaining: remaining,
	})
	return info, nil
}

// Compound adds an already-funded reward to the account's principal and
// recomputes voting power. The caller is responsible for moving the reward
// into the staking pool account first.
func (r *Registry) Compound(account string, amount types.Amount) error {
	if amount <= 0 {
		return fmt.Errorf(
			"compound %d: %w",
			amount,
			ledger.ErrInvalidAmount,
		)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[account]
	if !ok {
		return fmt.Errorf("compound for %s: %w", account, ErrNoPosition)
	}
	pos.Principal += amount
	if err := r.persist(pos); err != nil {
		pos.Principal -= amount
		return err
	}
	r.updateMetrics()
	r.publish(event.StakedEventType, event.StakedEvent{
		Account:     account,
		Principal:   pos.Principal,
		LockDays:    pos.LockDays,
		VotingPower: pos.VotingPower(),
		UnlockAt:    pos.UnlockAt,
	})
	return nil
}

// ApplyBooster adds a named bonus to the account's booster set. Applying a
// kind the account already has is a no-op; distinct kinds stack additively.
func (r *Registry) ApplyBooster(account string, kind BoosterKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBooster, uint8(kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[account]
	if !ok {
		return fmt.Errorf("booster for %s: %w", account, ErrNoPosition)
	}
	if _, ok := pos.Boosters[kind]; ok {
		return nil
	}
	pos.Boosters[kind] = kind.Bps()
	if err := r.persist(pos); err != nil {
		delete(pos.Boosters, kind)
		return err
	}
	r.logger.Info(
		"booster applied",
		"component", "staking",
		"account", account,
		"kind", kind.String(),
		"bonus_bps", kind.Bps(),
	)
	return nil
}

// Position returns a copy of the account's active position
func (r *Registry) Position(account string) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[account]
	if !ok {
		return Position{}, false
	}
	return pos.clone(), true
}

// VotingPower returns the account's current voting power, zero when the
// account has no active position
func (r *Registry) VotingPower(account string) types.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[account]
	if !ok {
		return 0
	}
	return pos.VotingPower()
}

// TotalVotingPower returns the sum of voting power across all positions
func (r *Registry) TotalVotingPower() types.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total types.Amount
	for _, pos := range r.positions {
		total += pos.VotingPower()
	}
	return total
}

// Participants returns the accounts with active positions, sorted
func (r *Registry) Participants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.positions))
	for account := range r.positions {
		ret = append(ret, account)
	}
	sort.Strings(ret)
	return ret
}

// Snapshot returns a consistent copy of all active positions, sorted by
// account. Iterating the snapshot is safe while other callers mutate the
// registry.
func (r *Registry) Snapshot() []Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]Position, 0, len(r.positions))
	for _, pos := range r.positions {
		ret = append(ret, pos.clone())
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Account < ret[j].Account
	})
	return ret
}

// Stats returns a point-in-time summary of the registry
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	stats := Stats{
		TotalStakers: len(r.positions),
	}
	var totalLockDays uint64
	for _, pos := range r.positions {
		stats.TotalStaked += pos.Principal
		stats.TotalVotingPower += pos.VotingPower()
		totalLockDays += uint64(pos.LockDays)
	}
	if len(r.positions) > 0 {
		stats.AverageLockDays = float64(totalLockDays) /
			float64(len(r.positions))
	}
	if supply := r.config.Ledger.CirculatingSupply(); supply > 0 {
		stats.StakingRatioBps = int64(
			stats.TotalStaked.MulDiv(types.BpsDenominator, supply),
		)
	}
	return stats
}

func (r *Registry) publish(eventType event.EventType, data any) {
	if r.config.EventBus == nil {
		return
	}
	r.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func (r *Registry) persist(pos *Position) error {
	if r.config.DB == nil {
		return nil
	}
	boosters := make(map[string]int64, len(pos.Boosters))
	for kind, bps := range pos.Boosters {
		boosters[kind.String()] = bps
	}
	boosterJson, err := json.Marshal(boosters)
	if err != nil {
		return err
	}
	return r.config.DB.UpsertStakePosition(database.StakePosition{
		Account:       pos.Account,
		Principal:     int64(pos.Principal),
		LockDays:      pos.LockDays,
		MultiplierBps: pos.MultiplierBps,
		StakedAt:      pos.StakedAt,
		UnlockAt:      pos.UnlockAt,
		Boosters:      boosterJson,
	})
}

func (r *Registry) load() error {
	rows, err := r.config.DB.ListStakePositions()
	if err != nil {
		return err
	}
	for _, row := range rows {
		pos := &Position{
			Account:       row.Account,
			Principal:     types.Amount(row.Principal),
			LockDays:      row.LockDays,
			MultiplierBps: row.MultiplierBps,
			StakedAt:      row.StakedAt,
			UnlockAt:      row.UnlockAt,
			Boosters:      make(map[BoosterKind]int64),
		}
		if len(row.Boosters) > 0 {
			var boosters map[string]int64
			if err := json.Unmarshal(
				row.Boosters,
				&boosters,
			); err != nil {
				return fmt.Errorf(
					"position for %s: %w",
					row.Account,
					err,
				)
			}
			for name, bps := range boosters {
				kind, err := ParseBoosterKind(name)
				if err != nil {
					return fmt.Errorf(
						"position for %s: %w",
						row.Account,
						err,
					)
				}
				pos.Boosters[kind] = bps
			}
		}
		r.positions[row.Account] = pos
	}
	if len(rows) > 0 {
		r.logger.Info(
			"restored stake positions",
			"component", "staking",
			"count", len(rows),
		)
	}
	return nil
}
