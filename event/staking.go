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

// StakedEventType is the event type for new or compounded stake
const StakedEventType = EventType("staking.staked")

// StakedEvent is emitted when an account locks value in the registry or an
// auto-compounded reward is added to its principal
type StakedEvent struct {
	Account     string
	Principal   types.Amount
	LockDays    uint32
	VotingPower types.Amount
	UnlockAt    time.Time
}

// UnstakedEventType is the event type for withdrawn stake
const UnstakedEventType = EventType("staking.unstaked")

// UnstakedEvent is emitted when an account withdraws part or all of its
// position. Penalty is zero unless the withdrawal was forced before unlock.
type UnstakedEvent struct {
	Account   string
	Amount    types.Amount
	Penalty   types.Amount
	Final     types.Amount
	Remaining types.Amount
}
