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

// UpsertStakePosition inserts or replaces the position row for an account
func (d *Database) UpsertStakePosition(pos StakePosition) error {
	result := d.metadata.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"principal",
			"lock_days",
			"multiplier_bps",
			"staked_at",
			"unlock_at",
			"boosters",
		}),
	}).Create(&pos)
	return result.Error
}

// DeleteStakePosition removes the position row for an account. Deleting a
// missing row is not an error.
func (d *Database) DeleteStakePosition(account string) error {
	result := d.metadata.
		Where("account = ?", account).
		Delete(&StakePosition{})
	return result.Error
}

// ListStakePositions returns all persisted positions
func (d *Database) ListStakePositions() ([]StakePosition, error) {
	var ret []StakePosition
	result := d.metadata.Order("account").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetStakePosition returns the position row for an account, or nil when the
// account has no active position
func (d *Database) GetStakePosition(account string) (*StakePosition, error) {
	var ret StakePosition
	result := d.metadata.
		Where("account = ?", account).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}
