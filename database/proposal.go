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

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertProposal inserts or replaces a proposal row
func (d *Database) UpsertProposal(p Proposal) error {
	result := d.metadata.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"votes_for",
			"votes_against",
			"votes_abstain",
			"status",
		}),
	}).Create(&p)
	return result.Error
}

// GetProposal returns a proposal row by ID, or nil when not found
func (d *Database) GetProposal(id uint64) (*Proposal, error) {
	var ret Proposal
	result := d.metadata.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// ListProposals returns all proposal rows ordered by ID
func (d *Database) ListProposals() ([]Proposal, error) {
	var ret []Proposal
	result := d.metadata.Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddProposalVote records a cast vote
func (d *Database) AddProposalVote(vote ProposalVote) error {
	result := d.metadata.Create(&vote)
	return result.Error
}

// ListProposalVotes returns all votes cast on a proposal
func (d *Database) ListProposalVotes(
	proposalId uint64,
) ([]ProposalVote, error) {
	var ret []ProposalVote
	result := d.metadata.
		Where("proposal_id = ?", proposalId).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
