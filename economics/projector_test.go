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

package economics_test

import (
	"testing"

	"github.com/agoralabs-io/agora/economics"
	"github.com/agoralabs-io/agora/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjector(t *testing.T) {
	_, err := economics.NewProjector(0)
	require.ErrorIs(t, err, economics.ErrInvalidSupply)
	_, err = economics.NewProjector(-1)
	require.ErrorIs(t, err, economics.ErrInvalidSupply)
	p, err := economics.NewProjector(types.NewAmount(1000000, 2))
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestProjectYear(t *testing.T) {
	p, err := economics.NewProjector(types.NewAmount(1000000, 2))
	require.NoError(t, err)

	_, err = p.ProjectYear(0, 6000, 800)
	require.ErrorIs(t, err, economics.ErrInvalidYear)
	_, err = p.ProjectYear(1, -1, 800)
	require.ErrorIs(t, err, economics.ErrInvalidRate)
	_, err = p.ProjectYear(1, 6000, 10001)
	require.ErrorIs(t, err, economics.ErrInvalidRate)

	// year one at 8% inflation, 60% staked
	model, err := p.ProjectYear(1, 6000, 800)
	require.NoError(t, err)
	assert.Equal(t, 1, model.Year)
	assert.Equal(t, types.NewAmount(80000, 2), model.RewardsDistributed)
	assert.Equal(t, types.NewAmount(1080000, 2), model.CirculatingSupply)
	assert.Equal(t, types.NewAmount(648000, 2), model.StakedAmount)
	// 80000 / 648000 = 12.34%
	assert.Equal(t, int64(1234), model.AverageYieldBps)

	// year two compounds on year one's supply
	model, err = p.ProjectYear(2, 6000, 800)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(86400, 2), model.RewardsDistributed)
	assert.Equal(t, types.NewAmount(1166400, 2), model.CirculatingSupply)
}

func TestProjectYearNothingStaked(t *testing.T) {
	p, err := economics.NewProjector(types.NewAmount(1000, 2))
	require.NoError(t, err)
	model, err := p.ProjectYear(1, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(0), model.StakedAmount)
	assert.Equal(t, int64(0), model.AverageYieldBps)
	assert.Equal(t, types.NewAmount(50, 2), model.RewardsDistributed)
}

func TestProjectSchedule(t *testing.T) {
	start := types.NewAmount(1000000, 2)
	p, err := economics.NewProjector(start)
	require.NoError(t, err)

	_, err = p.ProjectSchedule(6000, nil)
	require.ErrorIs(t, err, economics.ErrInvalidRate)
	_, err = p.ProjectSchedule(6000, []int64{800, -1})
	require.ErrorIs(t, err, economics.ErrInvalidRate)

	schedule := economics.DefaultInflationSchedule()
	models, err := p.ProjectSchedule(6000, schedule)
	require.NoError(t, err)
	require.Len(t, models, len(schedule))

	// first row matches the single-year projection at the same rate
	single, err := p.ProjectYear(1, 6000, schedule[0])
	require.NoError(t, err)
	assert.Equal(t, single, models[0])

	// supply compounds monotonically while the declining schedule keeps
	// each year's rate at or below the previous one
	prev := start
	for i, model := range models {
		assert.Equal(t, i+1, model.Year)
		assert.Greater(t, model.CirculatingSupply, prev)
		assert.Equal(
			t,
			prev.MulBps(model.InflationRateBps),
			model.RewardsDistributed,
		)
		if i > 0 {
			assert.LessOrEqual(
				t,
				model.InflationRateBps,
				models[i-1].InflationRateBps,
			)
		}
		prev = model.CirculatingSupply
	}
}

func TestProjectorIsPure(t *testing.T) {
	p, err := economics.NewProjector(types.NewAmount(1000, 2))
	require.NoError(t, err)
	first, err := p.ProjectYear(5, 5000, 300)
	require.NoError(t, err)
	_, err = p.ProjectSchedule(5000, economics.DefaultInflationSchedule())
	require.NoError(t, err)
	// repeated calls with the same inputs give the same output
	second, err := p.ProjectYear(5, 5000, 300)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
