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

package governance_test

import (
	"testing"
	"time"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/governance"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/staking"
	"github.com/agoralabs-io/agora/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	ledger   *ledger.MemLedger
	registry *staking.Registry
	engine   *governance.Engine
	clock    *fakeClock
}

func newTestEnv(t *testing.T, cfg governance.EngineConfig) *testEnv {
	t.Helper()
	l := ledger.NewMemLedger("AGO", 2)
	clock := &fakeClock{
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	r, err := staking.NewRegistry(staking.RegistryConfig{
		Ledger: l,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	cfg.Stakes = r
	cfg.Now = clock.Now
	e, err := governance.NewEngine(cfg)
	require.NoError(t, err)
	return &testEnv{
		ledger:   l,
		registry: r,
		engine:   e,
		clock:    clock,
	}
}

func (e *testEnv) stake(
	t *testing.T,
	account string,
	amount int64,
	lockDays uint32,
) {
	t.Helper()
	require.NoError(
		t,
		e.ledger.Mint(account, types.NewAmount(amount, 2)),
	)
	_, err := e.registry.Stake(
		account,
		types.NewAmount(amount, 2),
		lockDays,
	)
	require.NoError(t, err)
}

func TestCreateProposal(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})

	// no stake means no proposal
	_, err := env.engine.CreateProposal("alice", "t", "d")
	require.ErrorIs(t, err, governance.ErrInsufficientStake)

	env.stake(t, "alice", 1000, 90) // vp 2000.00
	proposal, err := env.engine.CreateProposal(
		"alice",
		"Fund the booster pool",
		"Mint 500 into the booster fund",
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), proposal.Id)
	assert.Equal(t, governance.ProposalStatusActive, proposal.Status)
	// default window is 7 days
	assert.Equal(
		t,
		env.clock.now.Add(7*24*time.Hour),
		proposal.VotingEndsAt,
	)
	// default quorum is 30% of total voting power at creation
	assert.Equal(
		t,
		types.NewAmount(2000, 2).MulBps(3000),
		proposal.QuorumRequired,
	)
}

func TestVote(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})
	env.stake(t, "alice", 1000, 90)
	env.stake(t, "bob", 500, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)

	err = env.engine.Vote(42, "alice", governance.VoteFor)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	err = env.engine.Vote(proposal.Id, "alice", governance.VoteChoice(9))
	require.ErrorIs(t, err, governance.ErrInvalidVote)

	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	err = env.engine.Vote(proposal.Id, "alice", governance.VoteAgainst)
	require.ErrorIs(t, err, governance.ErrAlreadyVoted)

	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "bob", governance.VoteAbstain),
	)

	got, err := env.engine.Proposal(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(2000, 2), got.VotesFor)
	assert.Equal(t, types.Amount(0), got.VotesAgainst)
	assert.Equal(t, types.NewAmount(500, 2), got.VotesAbstain)

	// voting after the window closes
	env.clock.Advance(8 * 24 * time.Hour)
	env.stake(t, "carol", 100, 0)
	err = env.engine.Vote(proposal.Id, "carol", governance.VoteFor)
	require.ErrorIs(t, err, governance.ErrProposalClosed)
}

func TestVoteWeightCapturedAtVoteTime(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})
	env.stake(t, "alice", 1000, 0)
	env.stake(t, "bob", 500, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)

	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	// later unstaking does not retroactively change the tally
	_, err = env.registry.Unstake(
		"alice",
		types.NewAmount(1000, 2),
		false,
	)
	require.NoError(t, err)

	got, err := env.engine.Proposal(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(1000, 2), got.VotesFor)
}

func TestFinalizeQuorumNotMet(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})
	env.stake(t, "alice", 1000, 0)
	env.stake(t, "bob", 9000, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)

	// only alice votes: 1000 of 10000 total power, quorum needs 30%
	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	env.clock.Advance(8 * 24 * time.Hour)
	status, err := env.engine.Finalize(proposal.Id)
	require.NoError(t, err)
	// below quorum the for/against ratio is irrelevant
	assert.Equal(t, governance.ProposalStatusQuorumNotMet, status)
}

func TestFinalizeExactThresholdRejected(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})
	// equal voting power on both sides
	env.stake(t, "alice", 1000, 0)
	env.stake(t, "bob", 1000, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)

	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "bob", governance.VoteAgainst),
	)
	env.clock.Advance(8 * 24 * time.Hour)
	status, err := env.engine.Finalize(proposal.Id)
	require.NoError(t, err)
	// 50:50 with a 0.5 threshold is not strictly greater: rejected
	assert.Equal(t, governance.ProposalStatusRejected, status)
}

func TestFinalizePassed(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{
		// 83.33% of the 1200.00 total power puts the quorum at 999.96
		QuorumBps: 8333,
	})
	// combined for-weight 1200.00 exceeds the ~1000.00 quorum
	env.stake(t, "alice", 1000, 0)
	env.stake(t, "bob", 200, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)
	assert.LessOrEqual(
		t,
		proposal.QuorumRequired,
		types.NewAmount(1000, 2),
	)

	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "bob", governance.VoteFor),
	)
	env.clock.Advance(8 * 24 * time.Hour)
	status, err := env.engine.Finalize(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusPassed, status)

	// re-finalizing returns the stored status without re-tallying
	status, err = env.engine.Finalize(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusPassed, status)
	got, err := env.engine.Proposal(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(1200, 2), got.VotesFor)

	// votes against a finalized proposal are rejected
	env.stake(t, "carol", 100, 0)
	err = env.engine.Vote(proposal.Id, "carol", governance.VoteFor)
	require.ErrorIs(t, err, governance.ErrProposalClosed)
}

func TestFinalizeNotYetClosed(t *testing.T) {
	env := newTestEnv(t, governance.EngineConfig{})
	env.stake(t, "alice", 1000, 0)
	env.stake(t, "bob", 500, 0)
	proposal, err := env.engine.CreateProposal("alice", "t", "d")
	require.NoError(t, err)

	_, err = env.engine.Finalize(proposal.Id)
	require.ErrorIs(t, err, governance.ErrNotYetClosed)

	// early close: once every account with a live position has voted,
	// finalize no longer needs to wait for the window
	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "alice", governance.VoteFor),
	)
	_, err = env.engine.Finalize(proposal.Id)
	require.ErrorIs(t, err, governance.ErrNotYetClosed)
	require.NoError(
		t,
		env.engine.Vote(proposal.Id, "bob", governance.VoteFor),
	)
	status, err := env.engine.Finalize(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusPassed, status)
}

func TestEnginePersistenceRestore(t *testing.T) {
	db, err := database.New(t.TempDir(), nil)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	l := ledger.NewMemLedger("AGO", 2)
	clock := &fakeClock{
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	r, err := staking.NewRegistry(staking.RegistryConfig{
		Ledger: l,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	require.NoError(t, l.Mint("alice", types.NewAmount(1000, 2)))
	_, err = r.Stake("alice", types.NewAmount(1000, 2), 0)
	require.NoError(t, err)

	e, err := governance.NewEngine(governance.EngineConfig{
		Stakes: r,
		DB:     db,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	proposal, err := e.CreateProposal("alice", "title", "desc")
	require.NoError(t, err)
	require.NoError(t, e.Vote(proposal.Id, "alice", governance.VoteFor))

	// a fresh engine over the same database sees the same proposal
	e2, err := governance.NewEngine(governance.EngineConfig{
		Stakes: r,
		DB:     db,
		Now:    clock.Now,
	})
	require.NoError(t, err)
	got, err := e2.Proposal(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, "title", got.Title)
	assert.Equal(t, types.NewAmount(1000, 2), got.VotesFor)
	assert.Equal(t, governance.VoteFor, got.Voters["alice"])
	assert.True(t, got.VotingEndsAt.Equal(proposal.VotingEndsAt))

	// restored proposals reject double votes
	err = e2.Vote(proposal.Id, "alice", governance.VoteAgainst)
	require.ErrorIs(t, err, governance.ErrAlreadyVoted)

	// new proposals continue the ID sequence
	prop2, err := e2.CreateProposal("alice", "second", "d")
	require.NoError(t, err)
	assert.Equal(t, proposal.Id+1, prop2.Id)
}
