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

package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/event"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/staking"
	"github.com/agoralabs-io/agora/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrEmptyPool is returned when there is nothing to distribute or nobody to
// distribute to. Advisory; callers should treat it as "try later".
var ErrEmptyPool = errors.New("empty reward pool")

const (
	defaultPoolAccount        = "rewards.pool"
	defaultBoosterFundAccount = "rewards.boosters"
	defaultIntervalDays       = 30
)

// StakeSource is the view of the stake registry the distributor needs
type StakeSource interface {
	Snapshot() []staking.Position
	Compound(account string, amount types.Amount) error
	PoolAccount() string
}

// Payout is one account's share of a reward period
type Payout struct {
	Account    string
	Base       types.Amount
	BoostBps   int64
	Boost      types.Amount
	Final      types.Amount
	Compounded bool
}

// RewardPeriod is the immutable record of one distribution event
type RewardPeriod struct {
	Sequence         uint64
	Pool             types.Amount
	TotalStaked      types.Amount
	TotalVotingPower types.Amount
	Timestamp        time.Time
	AutoCompound     bool
	Payouts          []Payout
}

// DistributorConfig holds configuration for the rewards distributor
type DistributorConfig struct {
	Logger       *slog.Logger
	Ledger       ledger.Ledger
	Stakes       StakeSource
	DB           *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Now          types.NowFunc
	// PoolAccount funds base rewards
	PoolAccount string
	// BoosterFundAccount funds booster bonuses, so boosters never eat
	// into the base pool
	BoosterFundAccount string
	// IntervalDays is the nominal spacing between distributions, used to
	// annualize APY projections. Zero means unset and selects the default
	// of 30 days
	IntervalDays uint32
}

// Distributor apportions reward pools across stake positions proportional
// to voting power and keeps the period history
type Distributor struct {
	config  DistributorConfig
	logger  *slog.Logger
	history []RewardPeriod
	metrics *distributorMetrics
	mu      sync.Mutex
}

// NewDistributor creates a rewards distributor, restoring period history
// when a database is configured
func NewDistributor(cfg DistributorConfig) (*Distributor, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("no ledger configured")
	}
	if cfg.Stakes == nil {
		return nil, errors.New("no stake source configured")
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
	if cfg.BoosterFundAccount == "" {
		cfg.BoosterFundAccount = defaultBoosterFundAccount
	}
	if cfg.IntervalDays == 0 {
		cfg.IntervalDays = defaultIntervalDays
	}
	d := &Distributor{
		config: cfg,
		logger: cfg.Logger,
	}
	if cfg.PromRegistry != nil {
		d.metrics = &distributorMetrics{}
		d.metrics.init(cfg.PromRegistry)
	}
	if cfg.DB != nil {
		if err := d.load(); err != nil {
			return nil, fmt.Errorf("restore reward history: %w", err)
		}
	}
	return d, nil
}

// PoolAccount returns the ledger account funding base rewards
func (d *Distributor) PoolAccount() string {
	return d.config.PoolAccount
}

// BoosterFundAccount returns the ledger account funding booster bonuses
func (d *Distributor) BoosterFundAccount() string {
	return d.config.BoosterFundAccount
}

// Distribute apportions pool across all active stake positions proportional
// to voting power. Base rewards use largest-remainder assignment so they
// sum to the pool exactly. Booster bonuses are paid from the booster fund
// on top of the base reward. With autoCompound the final reward is added to
// each position's principal instead of its free balance.
func (d *Distributor) Distribute(
	pool types.Amount,
	autoCompound bool,
) (RewardPeriod, error) {
	if pool <= 0 {
		return RewardPeriod{}, fmt.Errorf(
			"distribute %d: %w",
			pool,
			ErrEmptyPool,
		)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Work from a consistent snapshot; positions created or removed after
	// this point belong to the next period
	snapshot := d.config.Stakes.Snapshot()
	if len(snapshot) == 0 {
		return RewardPeriod{}, fmt.Errorf(
			"no active stakers: %w",
			ErrEmptyPool,
		)
	}
	var totalStaked, totalPower types.Amount
	for _, pos := range snapshot {
		totalStaked += pos.Principal
		totalPower += pos.VotingPower()
	}
	if totalPower <= 0 {
		return RewardPeriod{}, fmt.Errorf(
			"no voting power: %w",
			ErrEmptyPool,
		)
	}
	payouts := apportion(pool, snapshot, totalPower)
	// Pre-check funding so the whole distribution is all-or-nothing
	var totalBoost types.Amount
	for _, payout := range payouts {
		totalBoost += payout.Boost
	}
	if d.config.Ledger.Balance(d.config.PoolAccount) < pool {
		return RewardPeriod{}, fmt.Errorf(
			"pool account %s underfunded: %w",
			d.config.PoolAccount,
			ledger.ErrInsufficientBalance,
		)
	}
	if totalBoost > 0 &&
		d.config.Ledger.Balance(d.config.BoosterFundAccount) < totalBoost {
		return RewardPeriod{}, fmt.Errorf(
			"booster fund %s underfunded: %w",
			d.config.BoosterFundAccount,
			ledger.ErrInsufficientBalance,
		)
	}
	// Apply payouts record by record
	for i := range payouts {
		if err := d.payOut(&payouts[i], autoCompound); err != nil {
			return RewardPeriod{}, err
		}
	}
	period := RewardPeriod{
		Sequence:         uint64(len(d.history)) + 1,
		Pool:             pool,
		TotalStaked:      totalStaked,
		TotalVotingPower: totalPower,
		Timestamp:        d.config.Now(),
		AutoCompound:     autoCompound,
		Payouts:          payouts,
	}
	if d.config.DB != nil {
		encoded, err := json.Marshal(&period)
		if err != nil {
			return RewardPeriod{}, err
		}
		if err := d.config.DB.AddRewardPeriod(
			period.Sequence,
			encoded,
		); err != nil {
			return RewardPeriod{}, err
		}
	}
	d.history = append(d.history, period)
	if d.metrics != nil {
		d.metrics.distributions.Inc()
		d.metrics.distributed.Add(float64(pool))
	}
	d.logger.Info(
		"rewards distributed",
		"component", "rewards",
		"sequence", period.Sequence,
		"pool", int64(pool),
		"recipients", len(payouts),
		"auto_compound", autoCompound,
	)
	if d.config.EventBus != nil {
		d.config.EventBus.Publish(
			event.RewardsDistributedEventType,
			event.NewEvent(
				event.RewardsDistributedEventType,
				event.RewardsDistributedEvent{
					Sequence:      period.Sequence,
					Pool:          pool,
					Recipients:    len(payouts),
					Compounded:    autoCompound,
					DistributedAt: period.Timestamp,
				},
			),
		)
	}
	return period, nil
}

// apportion splits pool proportional to voting power using the largest
// remainder method: floor shares first, then one extra minor unit to the
// largest remainders (ties broken by account order) until the shares sum to
// the pool exactly.
func apportion(
	pool types.Amount,
	snapshot []staking.Position,
	totalPower types.Amount,
) []Payout {
	payouts := make([]Payout, len(snapshot))
	remainders := make([]types.Amount, len(snapshot))
	var assigned types.Amount
	for i, pos := range snapshot {
		base := pool.MulDiv(pos.VotingPower(), totalPower)
		payouts[i] = Payout{
			Account:  pos.Account,
			Base:     base,
			BoostBps: pos.BoostBps(),
		}
		remainders[i] = pool.MulRem(pos.VotingPower(), totalPower)
		assigned += base
	}
	leftover := pool - assigned
	order := make([]int, len(payouts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if remainders[order[a]] != remainders[order[b]] {
			return remainders[order[a]] > remainders[order[b]]
		}
		return payouts[order[a]].Account < payouts[order[b]].Account
	})
	for i := types.Amount(0); i < leftover; i++ {
		payouts[order[int(i)%len(order)]].Base++
	}
	for i := range payouts {
		payouts[i].Boost = payouts[i].Base.MulBps(payouts[i].BoostBps)
		payouts[i].Final = payouts[i].Base + payouts[i].Boost
	}
	return payouts
}

func (d *Distributor) payOut(payout *Payout, autoCompound bool) error {
	compound := autoCompound
	target := payout.Account
	if compound {
		target = d.config.Stakes.PoolAccount()
	}
	if payout.Base > 0 {
		if err := d.config.Ledger.Transfer(
			d.config.PoolAccount,
			target,
			payout.Base,
		); err != nil {
			return err
		}
	}
	if payout.Boost > 0 {
		if err := d.config.Ledger.Transfer(
			d.config.BoosterFundAccount,
			target,
			payout.Boost,
		); err != nil {
			return err
		}
	}
	if compound && payout.Final > 0 {
		err := d.config.Stakes.Compound(payout.Account, payout.Final)
		if errors.Is(err, staking.ErrNoPosition) {
			// Position was fully unstaked between snapshot and
			// apply; credit the free balance instead
			if err := d.config.Ledger.Transfer(
				d.config.Stakes.PoolAccount(),
				payout.Account,
				payout.Final,
			); err != nil {
				return err
			}
			compound = false
		} else if err != nil {
			return err
		}
	}
	payout.Compounded = compound && payout.Final > 0
	return nil
}

// CalculateAPY projects an annualized yield in basis points for a lock
// tier, from the historical average per-period reward rate scaled by the
// tier multiplier and, if requested, the maximum obtainable booster stack.
// Returns zero with no distribution history.
func (d *Distributor) CalculateAPY(
	lockDays uint32,
	includeBoosters bool,
) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.history) == 0 {
		return 0
	}
	var totalRateBps int64
	var counted int64
	for _, period := range d.history {
		if period.TotalStaked <= 0 {
			continue
		}
		totalRateBps += int64(
			period.Pool.MulDiv(
				types.BpsDenominator,
				period.TotalStaked,
			),
		)
		counted++
	}
	if counted == 0 {
		return 0
	}
	avgRateBps := totalRateBps / counted
	apyBps := avgRateBps * 365 / int64(d.config.IntervalDays)
	apyBps = apyBps * staking.MultiplierBps(lockDays) / types.BpsDenominator
	if includeBoosters {
		apyBps = apyBps *
			(types.BpsDenominator + staking.MaxBoostBps()) /
			types.BpsDenominator
	}
	return apyBps
}

// History returns a copy of the recorded reward periods in sequence order
func (d *Distributor) History() []RewardPeriod {
	d.mu.Lock()
	defer d.mu.Unlock()
	ret := make([]RewardPeriod, len(d.history))
	copy(ret, d.history)
	return ret
}

func (d *Distributor) load() error {
	blobs, err := d.config.DB.ListRewardPeriods()
	if err != nil {
		return err
	}
	for _, blob := range blobs {
		var period RewardPeriod
		if err := json.Unmarshal(blob, &period); err != nil {
			return err
		}
		d.history = append(d.history, period)
	}
	if len(d.history) > 0 {
		d.logger.Info(
			"restored reward history",
			"component", "rewards",
			"periods", len(d.history),
		)
	}
	return nil
}

type distributorMetrics struct {
	distributions prometheus.Counter
	distributed   prometheus.Counter
}

func (m *distributorMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.distributions = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "agora_rewards_distributions_total",
		Help: "total reward distribution events",
	})
	m.distributed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "agora_rewards_distributed_total",
		Help: "total base rewards paid out in minor units",
	})
}
