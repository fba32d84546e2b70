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

package agora_test

import (
	"testing"
	"time"

	"github.com/agoralabs-io/agora"
	"github.com/agoralabs-io/agora/ledger"
	"github.com/agoralabs-io/agora/staking"
	"github.com/agoralabs-io/agora/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	l := ledger.NewMemLedger("TEST", 4)
	a, err := agora.New(agora.NewConfig(
		agora.WithLedger(l),
		agora.WithVotingWindow(24*time.Hour),
		agora.WithQuorum(1000),
		agora.WithApprovalThreshold(6000),
		agora.WithMinProposalPower(types.NewAmount(10, 4)),
		agora.WithRewardInterval(7),
	))
	require.NoError(t, err)
	defer func() {
		_ = a.Close()
	}()
	// the supplied ledger is used as-is
	assert.Same(t, ledger.Ledger(l), a.Ledger())
}

func TestConfigRejectsBadValues(t *testing.T) {
	_, err := agora.New(agora.NewConfig(
		agora.WithPenaltyRate(20000),
	))
	require.Error(t, err)
	_, err = agora.New(agora.NewConfig(
		agora.WithPenaltyDestination(staking.PenaltyDestination("vanish")),
	))
	require.Error(t, err)
}
