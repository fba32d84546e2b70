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

package economics

import (
	"errors"
	"fmt"

	"github.com/agoralabs-io/agora/types"
)

var (
	// ErrInvalidSupply is returned for a non-positive starting supply
	ErrInvalidSupply = errors.New("starting supply must be positive")

	// ErrInvalidYear is returned for projection years before year one
	ErrInvalidYear = errors.New("projection year must be >= 1")

	// ErrInvalidRate is returned for rates outside their valid range
	ErrInvalidRate = errors.New("rate out of range")
)

// Model is a single projected year. All rates are basis points and all
// amounts are minor units; nothing here touches live ledger state.
type Model struct {
	Year               int
	CirculatingSupply  types.Amount
	StakedAmount       types.Amount
	StakingRatioBps    int64
	RewardsDistributed types.Amount
	InflationRateBps   int64
	AverageYieldBps    int64
}

// Projector produces forward supply projections from a starting supply.
// It is a pure calculator; callers may probe it with hypothetical
// parameters for scenario analysis without affecting anything.
type Projector struct {
	startingSupply types.Amount
}

// NewProjector creates a projector anchored at the given supply, typically
// the ledger's current circulating supply
func NewProjector(startingSupply types.Amount) (*Projector, error) {
	if startingSupply <= 0 {
		return nil, fmt.Errorf(
			"%w: %d",
			ErrInvalidSupply,
			startingSupply,
		)
	}
	return &Projector{startingSupply: startingSupply}, nil
}

// ProjectYear compounds the starting supply through the given number of
// years at a flat inflation rate and reports the final year: supply after
// growth, staked amount at the assumed staking ratio, rewards distributed
// during that year, and the average yield those rewards imply for stakers.
// Yield is zero when nothing is staked.
func (p *Projector) ProjectYear(
	year int,
	stakingRatioBps int64,
	inflationRateBps int64,
) (Model, error) {
	if year < 1 {
		return Model{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	if err := validateRates(stakingRatioBps, inflationRateBps); err != nil {
		return Model{}, err
	}
	supply := p.startingSupply
	var rewards types.Amount
	for i := 0; i < year; i++ {
		rewards = supply.MulBps(inflationRateBps)
		supply += rewards
	}
	return buildModel(
		year,
		supply,
		rewards,
		stakingRatioBps,
		inflationRateBps,
	), nil
}

// ProjectSchedule runs one model row per schedule entry, compounding the
// supply year over year. Schedules are typically declining, front-loading
// emission toward early years.
func (p *Projector) ProjectSchedule(
	stakingRatioBps int64,
	inflationScheduleBps []int64,
) ([]Model, error) {
	if len(inflationScheduleBps) == 0 {
		return nil, fmt.Errorf("%w: empty schedule", ErrInvalidRate)
	}
	supply := p.startingSupply
	ret := make([]Model, 0, len(inflationScheduleBps))
	for i, rate := range inflationScheduleBps {
		if err := validateRates(stakingRatioBps, rate); err != nil {
			return nil, fmt.Errorf("schedule year %d: %w", i+1, err)
		}
		rewards := supply.MulBps(rate)
		supply += rewards
		ret = append(ret, buildModel(
			i+1,
			supply,
			rewards,
			stakingRatioBps,
			rate,
		))
	}
	return ret, nil
}

func buildModel(
	year int,
	supply types.Amount,
	rewards types.Amount,
	stakingRatioBps int64,
	inflationRateBps int64,
) Model {
	staked := supply.MulBps(stakingRatioBps)
	var yieldBps int64
	if staked > 0 {
		yieldBps = int64(rewards.MulDiv(types.BpsDenominator, staked))
	}
	return Model{
		Year:               year,
		CirculatingSupply:  supply,
		StakedAmount:       staked,
		StakingRatioBps:    stakingRatioBps,
		RewardsDistributed: rewards,
		InflationRateBps:   inflationRateBps,
		AverageYieldBps:    yieldBps,
	}
}

func validateRates(stakingRatioBps, inflationRateBps int64) error {
	if stakingRatioBps < 0 || stakingRatioBps > types.BpsDenominator {
		return fmt.Errorf(
			"%w: staking ratio %d bps",
			ErrInvalidRate,
			stakingRatioBps,
		)
	}
	if inflationRateBps < 0 || inflationRateBps > types.BpsDenominator {
		return fmt.Errorf(
			"%w: inflation rate %d bps",
			ErrInvalidRate,
			inflationRateBps,
		)
	}
	return nil
}

// DefaultInflationSchedule is a ten-year declining emission schedule,
// 8% in year one tapering to 1% from year ten on
func DefaultInflationSchedule() []int64 {
	return []int64{800, 700, 600, 500, 400, 300, 250, 200, 150, 100}
}
