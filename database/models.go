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

package database

import "time"

// MigrateModels contains a list of model objects that should have DB
// migrations applied
var MigrateModels = []any{
	&StakePosition{},
	&Proposal{},
	&ProposalVote{},
}

// StakePosition is the persisted form of an active stake position. One row
// per account; voting power is recomputed from principal and multiplier on
// load, never stored.
type StakePosition struct {
	ID            uint      `gorm:"primarykey"`
	Account       string    `gorm:"uniqueIndex;size:64;not null"`
	Principal     int64     `gorm:"not null"`
	LockDays      uint32    `gorm:"not null"`
	MultiplierBps int64     `gorm:"not null"`
	StakedAt      time.Time `gorm:"not null"`
	UnlockAt      time.Time `gorm:"not null"`
	// Boosters is a JSON object mapping booster kind to bonus bps
	Boosters []byte
}

// TableName returns the table name
func (StakePosition) TableName() string {
	return "stake_position"
}

// Proposal is the persisted form of a governance proposal. The primary key
// is the engine-assigned proposal ID, not an auto-increment row ID, so that
// IDs survive restarts.
type Proposal struct {
	ID                   uint64    `gorm:"primarykey;autoIncrement:false"`
	Proposer             string    `gorm:"size:64;not null"`
	Title                string    `gorm:"size:256;not null"`
	Description          string    `gorm:"not null"`
	CreatedAt            time.Time `gorm:"not null"`
	VotingEndsAt         time.Time `gorm:"index;not null"`
	QuorumRequired       int64     `gorm:"not null"`
	ApprovalThresholdBps int64     `gorm:"not null"`
	VotesFor             int64     `gorm:"not null"`
	VotesAgainst         int64     `gorm:"not null"`
	VotesAbstain         int64     `gorm:"not null"`
	Status               uint8     `gorm:"index;not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// ProposalVote records a single cast vote. The unique index enforces the
// one-vote-per-account rule at the storage layer as well.
type ProposalVote struct {
	ID         uint   `gorm:"primarykey"`
	ProposalID uint64 `gorm:"uniqueIndex:idx_vote_proposal_account,priority:1;not null"`
	Account    string `gorm:"uniqueIndex:idx_vote_proposal_account,priority:2;size:64;not null"`
	Choice     uint8  `gorm:"not null"`
	Weight     int64  `gorm:"not null"`
	VotedAt    time.Time
}

// TableName returns the table name
func (ProposalVote) TableName() string {
	return "proposal_vote"
}
