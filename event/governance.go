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

package event

import (
	"time"

	"github.com/agoralabs-io/agora/types"
)

// ProposalCreatedEventType is the event type for new governance proposals
const ProposalCreatedEventType = EventType("governance.proposal")

// ProposalCreatedEvent is emitted when a proposal opens for voting
type ProposalCreatedEvent struct {
	ProposalId     uint64
	Proposer       string
	Title          string
	QuorumRequired types.Amount
	VotingEndsAt   time.Time
}

// VoteCastEventType is the event type for cast votes
const VoteCastEventType = EventType("governance.vote")

// VoteCastEvent is emitted when a vote is recorded on a proposal
type VoteCastEvent struct {
	ProposalId uint64
	Account    string
	Choice     string
	Weight     types.Amount
}

// ProposalFinalizedEventType is the event type for finalized proposals
const ProposalFinalizedEventType = EventType("governance.finalized")

// ProposalFinalizedEvent is emitted when a proposal reaches a terminal
// status
type ProposalFinalizedEvent struct {
	ProposalId uint64
	Status     string
}
