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

package staking_test

import (
	"testing"
	"time"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/staking"
	"github.com/agoralabs-io/agora/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for deterministic lock tests
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestRegistry(
	t *testing.T,
	cfg staking.RegistryConfig,
) (*staking.Registry, *ledger.MemLedger, *fakeClock) {
	t.Helper()
	l := ledger.NewMemLedger("AGO", 2)
	clock := &fakeClock{
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg.Ledger = l
	cfg.Now = clock.Now
	r, err := staking.NewRegistry(cfg)
	require.NoError(t, err)
	return r, l, clock
}

func TestMultiplierTiers(t *testing.T) {
	testDefs := []struct {
		lockDays    uint32
		expectedBps int64
	}{
		{0, 10000},
		{1, 11000},
		{6, 11000},
		{7, 12000},
		{29, 12000},
		{30, 15000},
		{89, 15000},
		{90, 20000},
		{179, 20000},
		{180, 30000},
		{720, 30000},
	}
	var lastBps int64
	for _, testDef := range testDefs {
		bps := staking.MultiplierBps(testDef.lockDays)
		assert.Equal(
			t,
			testDef.expectedBps,
			bps,
			"lock days %d",
			testDef.lockDays,
		)
		// monotonic non-decreasing in lock days
		assert.GreaterOrEqual(t, bps, lastBps)
		lastBps = bps
	}
}

func TestStakeVotingPower(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(50000, 2)))

	pos, err := r.Stake("alice", types.NewAmount(20000, 2), 180)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), pos.MultiplierBps)
	assert.Equal(t, types.NewAmount(60000, 2), pos.VotingPower())
	assert.Equal(t, types.NewAmount(60000, 2), r.VotingPower("alice"))
	assert.Equal(t, pos.StakedAt.AddDate(0, 0, 180), pos.UnlockAt)

	// principal moved out of the free balance into the pool
	assert.Equal(t, types.NewAmount(30000, 2), l.Balance("alice"))
	assert.Equal(
		t,
		types.NewAmount(20000, 2),
		l.Balance(r.PoolAccount()),
	)

	// no position means zero voting power
	assert.Equal(t, types.Amount(0), r.VotingPower("bob"))
}

func TestStakeValidation(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(100, 2)))

	_, err := r.Stake("alice", 0, 30)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = r.Stake("alice", -1, 30)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = r.Stake("alice", types.NewAmount(101, 2), 30)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	// failed stakes leave the ledger untouched
	assert.Equal(t, types.NewAmount(100, 2), l.Balance("alice"))

	// restaking while a position is active is rejected by policy
	_, err = r.Stake("alice", types.NewAmount(50, 2), 30)
	require.NoError(t, err)
	_, err = r.Stake("alice", types.NewAmount(10, 2), 90)
	require.ErrorIs(t, err, staking.ErrPositionActive)
}

func TestUnstakeLockEnforcement(t *testing.T) {
	r, l, clock := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(1000, 2)))
	_, err := r.Stake("alice", types.NewAmount(1000, 2), 30)
	require.NoError(t, err)

	// before unlock without force
	_, err = r.Unstake("alice", types.NewAmount(1000, 2), false)
	require.ErrorIs(t, err, staking.ErrStillLocked)

	// before unlock with force deducts exactly the penalty rate (10%)
	info, err := r.Unstake("alice", types.NewAmount(500, 2), true)
	require.NoError(t, err)
	assert.True(t, info.PenaltyApplied)
	assert.Equal(t, types.NewAmount(50, 2), info.Penalty)
	assert.Equal(t, types.NewAmount(450, 2), info.Final)
	assert.Equal(t, types.NewAmount(450, 2), l.Balance("alice"))
	// default penalty destination burns, shrinking supply
	assert.Equal(t, types.NewAmount(950, 2), l.CirculatingSupply())

	// partial unstake recomputes voting power from remaining principal
	assert.Equal(
		t,
		types.NewAmount(500, 2).MulBps(15000),
		r.VotingPower("alice"),
	)

	// after unlock no penalty regardless of force
	clock.Advance(31 * 24 * time.Hour)
	info, err = r.Unstake("alice", types.NewAmount(500, 2), true)
	require.NoError(t, err)
	assert.False(t, info.PenaltyApplied)
	assert.Equal(t, types.Amount(0), info.Penalty)
	assert.Equal(t, types.NewAmount(500, 2), info.Final)

	// full unstake removes the position
	assert.Equal(t, types.Amount(0), r.VotingPower("alice"))
	_, ok := r.Position("alice")
	assert.False(t, ok)
}

func TestUnstakePenaltyRedirect(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{
		PenaltyDestination: staking.PenaltyDestinationRewardPool,
		RewardPoolAccount:  "rewards.pool",
	})
	require.NoError(t, l.Mint("alice", types.NewAmount(1000, 2)))
	_, err := r.Stake("alice", types.NewAmount(1000, 2), 30)
	require.NoError(t, err)

	info, err := r.Unstake("alice", types.NewAmount(1000, 2), true)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(100, 2), info.Penalty)
	// penalty recycled into the reward pool, supply unchanged
	assert.Equal(t, types.NewAmount(100, 2), l.Balance("rewards.pool"))
	assert.Equal(t, types.NewAmount(1000, 2), l.CirculatingSupply())
}

func TestUnstakeValidation(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(100, 2)))

	_, err := r.Unstake("alice", types.NewAmount(10, 2), false)
	require.ErrorIs(t, err, staking.ErrNoPosition)

	_, err = r.Stake("alice", types.NewAmount(100, 2), 0)
	require.NoError(t, err)
	_, err = r.Unstake("alice", types.NewAmount(101, 2), false)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	_, err = r.Unstake("alice", 0, false)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	// zero lock days means no lock at all
	info, err := r.Unstake("alice", types.NewAmount(100, 2), false)
	require.NoError(t, err)
	assert.False(t, info.PenaltyApplied)
}

func TestApplyBoosterIdempotent(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(100, 2)))
	_, err := r.Stake("alice", types.NewAmount(100, 2), 30)
	require.NoError(t, err)

	require.NoError(
		t,
		r.ApplyBooster("alice", staking.BoosterEarlyAdopter),
	)
	pos, ok := r.Position("alice")
	require.True(t, ok)
	assert.Equal(t, int64(2000), pos.BoostBps())

	// re-applying the same kind does not double the bonus
	require.NoError(
		t,
		r.ApplyBooster("alice", staking.BoosterEarlyAdopter),
	)
	pos, _ = r.Position("alice")
	assert.Equal(t, int64(2000), pos.BoostBps())

	// distinct kinds stack additively
	require.NoError(t, r.ApplyBooster("alice", staking.BoosterGovernance))
	pos, _ = r.Position("alice")
	assert.Equal(t, int64(3500), pos.BoostBps())

	err = r.ApplyBooster("alice", staking.BoosterKind(99))
	require.ErrorIs(t, err, staking.ErrUnknownBooster)
	err = r.ApplyBooster("bob", staking.BoosterLoyalty)
	require.ErrorIs(t, err, staking.ErrNoPosition)
}

func TestStats(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(50000, 2)))
	require.NoError(t, l.Mint("bob", types.NewAmount(10000, 2)))
	_, err := r.Stake("alice", types.NewAmount(20000, 2), 180)
	require.NoError(t, err)
	_, err = r.Stake("bob", types.NewAmount(5000, 2), 90)
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, 2, stats.TotalStakers)
	assert.Equal(t, types.NewAmount(25000, 2), stats.TotalStaked)
	assert.Equal(t, types.NewAmount(70000, 2), stats.TotalVotingPower)
	assert.Equal(t, float64(135), stats.AverageLockDays)
	// 25000 staked of 60000 circulating
	assert.Equal(t, int64(4166), stats.StakingRatioBps)
}

func TestSnapshotIsolation(t *testing.T) {
	r, l, _ := newTestRegistry(t, staking.RegistryConfig{})
	require.NoError(t, l.Mint("alice", types.NewAmount(100, 2)))
	require.NoError(t, l.Mint("bob", types.NewAmount(100, 2)))
	_, err := r.Stake("alice", types.NewAmount(100, 2), 0)
	require.NoError(t, err)
	_, err = r.Stake("bob", types.NewAmount(100, 2), 0)
	require.NoError(t, err)

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "alice", snapshot[0].Account)
	assert.Equal(t, "bob", snapshot[1].Account)

	// mutations after the snapshot do not affect it
	_, err = r.Unstake("bob", types.NewAmount(100, 2), false)
	require.NoError(t, err)
	assert.Len(t, r.Snapshot(), 1)
	assert.Len(t, snapshot, 2)
}

func TestRegistryPersistenceRestore(t *testing.T) {
	db, err := database.New(t.TempDir(), nil)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	l := ledger.NewMemLedger("AGO", 2)
	clock := &fakeClock{
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, l.Mint("alice", types.NewAmount(50000, 2)))

	r, err := staking.NewRegistry(staking.RegistryConfig{
		Ledger: l,
		DB:     db,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	_, err = r.Stake("alice", types.NewAmount(20000, 2), 180)
	require.NoError(t, err)
	require.NoError(t, r.ApplyBooster("alice", staking.BoosterReferral))

	// a second registry over the same database sees the same position
	r2, err := staking.NewRegistry(staking.RegistryConfig{
		Ledger: l,
		DB:     db,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	pos, ok := r2.Position("alice")
	require.True(t, ok)
	assert.Equal(t, types.NewAmount(20000, 2), pos.Principal)
	assert.Equal(t, uint32(180), pos.LockDays)
	assert.Equal(t, int64(30000), pos.MultiplierBps)
	assert.Equal(t, types.NewAmount(60000, 2), pos.VotingPower())
	assert.Equal(t, int64(1000), pos.BoostBps())
	assert.True(t, pos.UnlockAt.Equal(clock.now.AddDate(0, 0, 180)))
}
