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
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const rewardPeriodKeyPrefix = "period/"

func rewardPeriodKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", rewardPeriodKeyPrefix, seq)
}

// AddRewardPeriod appends an encoded reward period to the history blob
// store. Periods are immutable once written; an existing sequence number is
// never overwritten.
func (d *Database) AddRewardPeriod(seq uint64, data []byte) error {
	key := rewardPeriodKey(seq)
	return d.blob.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf(
				"reward period %d already recorded",
				seq,
			)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// ListRewardPeriods returns all encoded reward periods in sequence order
func (d *Database) ListRewardPeriods() ([][]byte, error) {
	var ret [][]byte
	err := d.blob.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(rewardPeriodKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ret = append(ret, val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
