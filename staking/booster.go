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

import "fmt"

// BoosterKind identifies a named reward bonus. The set of kinds is closed;
// each kind carries a fixed bonus in basis points. Distinct kinds stack
// additively on an account; re-applying a kind is a no-op.
type BoosterKind uint8

const (
	BoosterEarlyAdopter BoosterKind = iota
	BoosterGovernance
	BoosterReferral
	BoosterLoyalty
)

var boosterBps = map[BoosterKind]int64{
	BoosterEarlyAdopter: 2000,
	BoosterGovernance:   1500,
	BoosterReferral:     1000,
	BoosterLoyalty:      500,
}

var boosterNames = map[BoosterKind]string{
	BoosterEarlyAdopter: "early-adopter",
	BoosterGovernance:   "governance",
	BoosterReferral:     "referral",
	BoosterLoyalty:      "loyalty",
}

// Bps returns the bonus for the booster kind in basis points
func (k BoosterKind) Bps() int64 {
	return boosterBps[k]
}

// Valid returns true for known booster kinds
func (k BoosterKind) Valid() bool {
	_, ok := boosterBps[k]
	return ok
}

func (k BoosterKind) String() string {
	if name, ok := boosterNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ParseBoosterKind maps a booster name back to its kind
func ParseBoosterKind(name string) (BoosterKind, error) {
	for kind, kindName := range boosterNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown booster kind: %s", name)
}

// MaxBoostBps returns the bonus of the full booster stack in basis points
func MaxBoostBps() int64 {
	var total int64
	for _, bps := range boosterBps {
		total += bps
	}
	return total
}
