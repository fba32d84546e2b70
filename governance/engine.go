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

package governance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/agoralabs-io/agora/database"
	"github.com/agoralabs-io/agora/event"
	"github.com/agoralabs-io/agora/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrInsufficientStake is returned when the proposer's voting power
	// is below the configured minimum
	ErrInsufficientStake = errors.New("insufficient stake to propose")

	// ErrProposalNotFound is returned for unknown proposal IDs
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrProposalClosed is returned when voting after the voting window
	// has ended or the proposal has been finalized
	ErrProposalClosed = errors.New("proposal is closed")

	// ErrAlreadyVoted is returned on a second vote from the same account
	ErrAlreadyVoted = errors.New("account has already voted")

	// ErrNotYetClosed is returned when finalizing before the voting
	// window has ended and not all eligible voters have voted. Advisory;
	// callers should treat it as "try later".
	ErrNotYetClosed = errors.New("voting is still open")

	// ErrInvalidVote is returned for vote choices outside the closed set
	ErrInvalidVote = errors.New("invalid vote choice")
)

const (
	defaultVotingWindow         = 7 * 24 * time.Hour
	defaultQuorumBps            = 3000
	defaultApprovalThresholdBps = 5000
	defaultMinProposalPower     = 1
)

// StakeSource is the view of the stake registry the governance engine
// needs. Voting weight is always re-queried at vote time, never cached.
type StakeSource interface {
	VotingPower(account string) types.Amount
	TotalVotingPower() types.Amount
	Participants() []string
}

// EngineConfig holds configuration for the governance engine
type EngineConfig struct {
	Logger       *slog.Logger
	Stakes       StakeSource
	DB           *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Now          types.NowFunc
	// VotingWindow is how long proposals accept votes. Zero means unset
	// and selects the default of 7 days
	VotingWindow time.Duration
	// QuorumBps scales the total voting power snapshot at proposal
	// creation into the absolute quorum requirement. Zero means unset
	// and selects the default of 3000 bps
	QuorumBps int64
	// ApprovalThresholdBps is the for/(for+against) ratio a proposal
	// must strictly exceed to pass; abstentions are excluded. Zero means
	// unset and selects the default of 5000 bps
	ApprovalThresholdBps int64
	// MinProposalPower is the voting power required to create proposals.
	// Zero means unset and selects the default of 1 minor unit
	MinProposalPower types.Amount
}

// Engine creates proposals, records one weighted vote per account, and
// finalizes outcomes against quorum and approval-threshold rules
type Engine struct {
	config    EngineConfig
	logger    *slog.Logger
	proposals map[uint64]*proposalState
	lastId    uint64
	metrics   *engineMetrics
	mu        sync.RWMutex
}

// proposalState pairs a proposal with its lock. The proposal lock is always
// acquired before any stake registry access, keeping lock order fixed.
type proposalState struct {
	proposal Proposal
	mu       sync.Mutex
}

// NewEngine creates a governance engine, restoring persisted proposals when
// a database is configured
func NewEngine(cfg EngineConfig) (*Engine, error) {
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
	if cfg.VotingWindow == 0 {
		cfg.VotingWindow = defaultVotingWindow
	}
	if cfg.QuorumBps == 0 {
		cfg.QuorumBps = defaultQuorumBps
	}
	if cfg.ApprovalThresholdBps == 0 {
		cfg.ApprovalThresholdBps = defaultApprovalThresholdBps
	}
	if cfg.MinProposalPower == 0 {
		cfg.MinProposalPower = defaultMinProposalPower
	}
	e := &Engine{
		config:    cfg,
		logger:    cfg.Logger,
		proposals: make(map[uint64]*proposalState),
	}
	if cfg.PromRegistry != nil {
		e.metrics = &engineMetrics{}
		e.metrics.init(cfg.PromRegistry)
	}
	if cfg.DB != nil {
		if err := e.load(); err != nil {
			return nil, fmt.Errorf("restore proposals: %w", err)
		}
	}
	return e, nil
}

// CreateProposal opens a new proposal for voting. The quorum requirement is
// fixed from the total voting power snapshot at creation time.
func (e *Engine) CreateProposal(
	account string,
	title string,
	description string,
) (Proposal, error) {
	power := e.config.Stakes.VotingPower(account)
	if power < e.config.MinProposalPower {
		return Proposal{}, fmt.Errorf(
			"proposer %s has %d voting power, need %d: %w",
			account,
			power,
			e.config.MinProposalPower,
			ErrInsufficientStake,
		)
	}
	now := e.config.Now()
	quorum := e.config.Stakes.TotalVotingPower().
		MulBps(e.config.QuorumBps)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastId++
	proposal := Proposal{
		Id:                   e.lastId,
		Proposer:             account,
		Title:                title,
		Description:          description,
		CreatedAt:            now,
		VotingEndsAt:         now.Add(e.config.VotingWindow),
		QuorumRequired:       quorum,
		ApprovalThresholdBps: e.config.ApprovalThresholdBps,
		Status:               ProposalStatusActive,
		Voters:               make(map[string]VoteChoice),
	}
	if err := e.persist(proposal); err != nil {
		e.lastId--
		return Proposal{}, err
	}
	e.proposals[proposal.Id] = &proposalState{proposal: proposal}
	if e.metrics != nil {
		e.metrics.activeProposals.Inc()
	}
	e.logger.Info(
		"proposal created",
		"component", "governance",
		"proposal_id", proposal.Id,
		"proposer", account,
		"quorum_required", int64(quorum),
		"voting_ends_at", proposal.VotingEndsAt,
	)
	e.publish(event.ProposalCreatedEventType, event.ProposalCreatedEvent{
		ProposalId:     proposal.Id,
		Proposer:       account,
		Title:          title,
		QuorumRequired: quorum,
		VotingEndsAt:   proposal.VotingEndsAt,
	})
	return proposal.clone(), nil
}

// Vote records one vote per account, weighted by the account's voting
// power at vote time. Later unstaking does not change a recorded tally.
func (e *Engine) Vote(
	proposalId uint64,
	account string,
	choice VoteChoice,
) error {
	if !choice.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidVote, uint8(choice))
	}
	state, err := e.state(proposalId)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	proposal := &state.proposal
	if proposal.Status.Terminal() {
		return fmt.Errorf(
			"proposal %d already %s: %w",
			proposalId,
			proposal.Status,
			ErrProposalClosed,
		)
	}
	if !e.config.Now().Before(proposal.VotingEndsAt) {
		return fmt.Errorf(
			"proposal %d voting ended at %s: %w",
			proposalId,
			proposal.VotingEndsAt.Format(time.RFC3339),
			ErrProposalClosed,
		)
	}
	if _, ok := proposal.Voters[account]; ok {
		return fmt.Errorf(
			"account %s on proposal %d: %w",
			account,
			proposalId,
			ErrAlreadyVoted,
		)
	}
	// Weight is captured into the tally now, not re-derived at finalize
	weight := e.config.Stakes.VotingPower(account)
	switch choice {
	case VoteFor:
		proposal.VotesFor += weight
	case VoteAgainst:
		proposal.VotesAgainst += weight
	case VoteAbstain:
		proposal.VotesAbstain += weight
	}
	proposal.Voters[account] = choice
	if err := e.persistVote(proposal, account, choice, weight); err != nil {
		// Roll back the tally so the failed call leaves no trace
		switch choice {
		case VoteFor:
			proposal.VotesFor -= weight
		case VoteAgainst:
			proposal.VotesAgainst -= weight
		case VoteAbstain:
			proposal.VotesAbstain -= weight
		}
		delete(proposal.Voters, account)
		return err
	}
	if e.metrics != nil {
		e.metrics.votes.Inc()
	}
	e.logger.Info(
		"vote cast",
		"component", "governance",
		"proposal_id", proposalId,
		"account", account,
		"choice", choice.String(),
		"weight", int64(weight),
	)
	e.publish(event.VoteCastEventType, event.VoteCastEvent{
		ProposalId: proposalId,
		Account:    account,
		Choice:     choice.String(),
		Weight:     weight,
	})
	return nil
}

// Finalize settles a proposal once its voting window has ended, or earlier
// when every account with an active stake position has already voted.
// Finalizing a terminal proposal returns the stored status without
// re-tallying.
func (e *Engine) Finalize(proposalId uint64) (ProposalStatus, error) {
	state, err := e.state(proposalId)
	if err != nil {
		return 0, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	proposal := &state.proposal
	if proposal.Status.Terminal() {
		return proposal.Status, nil
	}
	if e.config.Now().Before(proposal.VotingEndsAt) &&
		!e.allEligibleVoted(proposal) {
		return 0, fmt.Errorf(
			"proposal %d open until %s: %w",
			proposalId,
			proposal.VotingEndsAt.Format(time.RFC3339),
			ErrNotYetClosed,
		)
	}
	status := tally(proposal)
	proposal.Status = status
	if err := e.persist(*proposal); err != nil {
		proposal.Status = ProposalStatusActive
		return 0, err
	}
	if e.metrics != nil {
		e.metrics.activeProposals.Dec()
		e.metrics.finalized.WithLabelValues(status.String()).Inc()
	}
	e.logger.Info(
		"proposal finalized",
		"component", "governance",
		"proposal_id", proposalId,
		"status", status.String(),
		"votes_for", int64(proposal.VotesFor),
		"votes_against", int64(proposal.VotesAgainst),
		"votes_abstain", int64(proposal.VotesAbstain),
	)
	e.publish(
		event.ProposalFinalizedEventType,
		event.ProposalFinalizedEvent{
			ProposalId: proposalId,
			Status:     status.String(),
		},
	)
	return status, nil
}

// tally settles an active proposal against its quorum and approval
// threshold. Quorum compares total cast weight (abstentions included);
// the approval ratio excludes abstentions and must be strictly exceeded.
func tally(proposal *Proposal) ProposalStatus {
	if proposal.TotalCast() < proposal.QuorumRequired {
		return ProposalStatusQuorumNotMet
	}
	decisive := proposal.VotesFor + proposal.VotesAgainst
	if decisive == 0 {
		return ProposalStatusRejected
	}
	// votesFor / decisive > threshold, in exact integer arithmetic
	lhs := new(big.Int).Mul(
		big.NewInt(int64(proposal.VotesFor)),
		big.NewInt(types.BpsDenominator),
	)
	rhs := new(big.Int).Mul(
		big.NewInt(proposal.ApprovalThresholdBps),
		big.NewInt(int64(decisive)),
	)
	if lhs.Cmp(rhs) > 0 {
		return ProposalStatusPassed
	}
	return ProposalStatusRejected
}

func (e *Engine) allEligibleVoted(proposal *Proposal) bool {
	for _, account := range e.config.Stakes.Participants() {
		if _, ok := proposal.Voters[account]; !ok {
			return false
		}
	}
	return true
}

// Proposal returns a copy of the proposal with the given ID
func (e *Engine) Proposal(proposalId uint64) (Proposal, error) {
	state, err := e.state(proposalId)
	if err != nil {
		return Proposal{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.proposal.clone(), nil
}

// Proposals returns copies of all proposals ordered by ID
func (e *Engine) Proposals() []Proposal {
	e.mu.RLock()
	states := make([]*proposalState, 0, len(e.proposals))
	for _, state := range e.proposals {
		states = append(states, state)
	}
	e.mu.RUnlock()
	ret := make([]Proposal, 0, len(states))
	for _, state := range states {
		state.mu.Lock()
		ret = append(ret, state.proposal.clone())
		state.mu.Unlock()
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Id < ret[j].Id
	})
	return ret
}

func (e *Engine) state(proposalId uint64) (*proposalState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state, ok := e.proposals[proposalId]
	if !ok {
		return nil, fmt.Errorf(
			"proposal %d: %w",
			proposalId,
			ErrProposalNotFound,
		)
	}
	return state, nil
}

func (e *Engine) publish(eventType event.EventType, data any) {
	if e.config.EventBus == nil {
		return
	}
	e.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func (e *Engine) persist(proposal Proposal) error {
	if e.config.DB == nil {
		return nil
	}
	return e.config.DB.UpsertProposal(database.Proposal{
		ID:                   proposal.Id,
		Proposer:             proposal.Proposer,
		Title:                proposal.Title,
		Description:          proposal.Description,
		CreatedAt:            proposal.CreatedAt,
		VotingEndsAt:         proposal.VotingEndsAt,
		QuorumRequired:       int64(proposal.QuorumRequired),
		ApprovalThresholdBps: proposal.ApprovalThresholdBps,
		VotesFor:             int64(proposal.VotesFor),
		VotesAgainst:         int64(proposal.VotesAgainst),
		VotesAbstain:         int64(proposal.VotesAbstain),
		Status:               uint8(proposal.Status),
	})
}

func (e *Engine) persistVote(
	proposal *Proposal,
	account string,
	choice VoteChoice,
	weight types.Amount,
) error {
	if e.config.DB == nil {
		return nil
	}
	if err := e.config.DB.AddProposalVote(database.ProposalVote{
		ProposalID: proposal.Id,
		Account:    account,
		Choice:     uint8(choice),
		Weight:     int64(weight),
		VotedAt:    e.config.Now(),
	}); err != nil {
		return err
	}
	return e.persist(*proposal)
}

func (e *Engine) load() error {
	rows, err := e.config.DB.ListProposals()
	if err != nil {
		return err
	}
	for _, row := range rows {
		proposal := Proposal{
			Id:                   row.ID,
			Proposer:             row.Proposer,
			Title:                row.Title,
			Description:          row.Description,
			CreatedAt:            row.CreatedAt,
			VotingEndsAt:         row.VotingEndsAt,
			QuorumRequired:       types.Amount(row.QuorumRequired),
			ApprovalThresholdBps: row.ApprovalThresholdBps,
			VotesFor:             types.Amount(row.VotesFor),
			VotesAgainst:         types.Amount(row.VotesAgainst),
			VotesAbstain:         types.Amount(row.VotesAbstain),
			Status:               ProposalStatus(row.Status),
			Voters:               make(map[string]VoteChoice),
		}
		votes, err := e.config.DB.ListProposalVotes(row.ID)
		if err != nil {
			return err
		}
		for _, vote := range votes {
			proposal.Voters[vote.Account] = VoteChoice(vote.Choice)
		}
		e.proposals[row.ID] = &proposalState{proposal: proposal}
		if row.ID > e.lastId {
			e.lastId = row.ID
		}
	}
	if len(rows) > 0 {
		e.logger.Info(
			"restored proposals",
			"component", "governance",
			"count", len(rows),
		)
	}
	return nil
}

type engineMetrics struct {
	activeProposals prometheus.Gauge
	votes           prometheus.Counter
	finalized       *prometheus.CounterVec
}

func (m *engineMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.activeProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_governance_active_proposals_int",
		Help: "number of proposals open for voting",
	})
	m.votes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "agora_governance_votes_total",
		Help: "total votes cast",
	})
	m.finalized = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_governance_finalized_total",
			Help: "finalized proposals by status",
		},
		[]string{"status"},
	)
}
