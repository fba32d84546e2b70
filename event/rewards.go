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

// RewardsDistributedEventType is the event type for completed distributions
const RewardsDistributedEventType = EventType("rewards.distributed")

// RewardsDistributedEvent is emitted after a reward period is recorded
type RewardsDistributedEvent struct {
	Sequence      uint64
	Pool          types.Amount
	Recipients    int
	Compounded    bool
	DistributedAt time.Time
}
