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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	totalStakers     prometheus.Gauge
	totalStaked      prometheus.Gauge
	totalVotingPower prometheus.Gauge
	stakingRatio     prometheus.Gauge
}

func (m *registryMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.totalStakers = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_staking_stakers_int",
		Help: "number of accounts with an active stake position",
	})
	m.totalStaked = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_staking_total_staked_int",
		Help: "total locked principal in minor units",
	})
	m.totalVotingPower = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_staking_total_voting_power_int",
		Help: "total voting power in minor units",
	})
	m.stakingRatio = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "agora_staking_ratio_bps_int",
		Help: "staked share of circulating supply in basis points",
	})
}

func (r *Registry) updateMetrics() {
	if r.metrics == nil {
		return
	}
	stats := r.statsLocked()
	r.metrics.totalStakers.Set(float64(stats.TotalStakers))
	r.metrics.totalStaked.Set(float64(stats.TotalStaked))
	r.metrics.totalVotingPower.Set(float64(stats.TotalVotingPower))
	r.metrics.stakingRatio.Set(float64(stats.StakingRatioBps))
}
