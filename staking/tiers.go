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

package staking

import "github.com/agoralabs-io/agora/types"

type lockTier struct {
	minDays       uint32
	multiplierBps int64
}

// lockTiers maps lock duration to a time multiplier. Ordered longest first;
// the longest qualifying tier wins.
var lockTiers = []lockTier{
	{minDays: 180, multiplierBps: 30000},
	{minDays: 90, multiplierBps: 20000},
	{minDays: 30, multiplierBps: 15000},
	{minDays: 7, multiplierBps: 12000},
	{minDays: 1, multiplierBps: 11000},
}

// MultiplierBps returns the time multiplier for a lock duration in basis
// points. An unlocked stake (0 days) has the identity multiplier.
func MultiplierBps(lockDays uint32) int64 {
	for _, tier := range lockTiers {
		if lockDays >= tier.minDays {
			return tier.multiplierBps
		}
	}
	return types.BpsDenominator
}
