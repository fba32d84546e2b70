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
	"maps"
	"time"

	"github.com/agoralabs-io/agora/types"
)

// VoteChoice is a voter's position on a proposal
type VoteChoice uint8

const (
	VoteAgainst VoteChoice = iota
	VoteFor
	VoteAbstain
)

func (c VoteChoice) String() string {
	switch c {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// Valid returns true for known vote choices
func (c VoteChoice) Valid() bool {
	switch c {
	case VoteAgainst, VoteFor, VoteAbstain:
		return true
	default:
		return false
	}
}

// ProposalStatus is the lifecycle state of a proposal. Active proposals
// transition to exactly one terminal status at finalization.
type ProposalStatus uint8

const (
	ProposalStatusActive ProposalStatus = iota
	ProposalStatusPassed
	ProposalStatusRejected
	ProposalStatusQuorumNotMet
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusQuorumNotMet:
		return "quorum-not-met"
	default:
		return "unknown"
	}
}

// Terminal returns true once a proposal can no longer change status
func (s ProposalStatus) Terminal() bool {
	return s != ProposalStatusActive
}

// Proposal is a governance proposal with voting-power-weighted tallies.
// Tally weights are captured at vote time; later stake changes do not
// retroactively alter a recorded tally.
type Proposal struct {
	Id                   uint64
	Proposer             string
	Title                string
	Description          string
	CreatedAt            time.Time
	VotingEndsAt         time.Time
	QuorumRequired       types.Amount
	ApprovalThresholdBps int64
	VotesFor             types.Amount
	VotesAgainst         types.Amount
	VotesAbstain         types.Amount
	Status               ProposalStatus
	// Voters records each account's choice; one vote per account
	Voters map[string]VoteChoice
}

// TotalCast returns the total voting power cast on the proposal
func (p Proposal) TotalCast() types.Amount {
	return p.VotesFor + p.VotesAgainst + p.VotesAbstain
}

func (p Proposal) clone() Proposal {
	ret := p
	ret.Voters = maps.Clone(p.Voters)
	return ret
}
