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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "agora.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DatabasePath         string `yaml:"databasePath"         split_words:"true"`
	TokenSymbol          string `yaml:"tokenSymbol"          split_words:"true"`
	MetricsBindAddr      string `yaml:"metricsBindAddr"      split_words:"true"`
	PenaltyDestination   string `yaml:"penaltyDestination"   split_words:"true"`
	TokenDecimals        uint32 `yaml:"tokenDecimals"        split_words:"true"`
	MetricsPort          uint   `yaml:"metricsPort"          split_words:"true"`
	PenaltyRateBps       int64  `yaml:"penaltyRateBps"       envconfig:"AGORA_PENALTY_RATE_BPS"`
	QuorumBps            int64  `yaml:"quorumBps"            envconfig:"AGORA_QUORUM_BPS"`
	ApprovalThresholdBps int64  `yaml:"approvalThresholdBps" envconfig:"AGORA_APPROVAL_THRESHOLD_BPS"`
	VotingWindowDays     uint32 `yaml:"votingWindowDays"     split_words:"true"`
	RewardIntervalDays   uint32 `yaml:"rewardIntervalDays"   split_words:"true"`
}

var globalConfig = &Config{
	DatabasePath:    ".agora",
	TokenSymbol:     "AGORA",
	TokenDecimals:   6,
	MetricsBindAddr: "127.0.0.1",
	MetricsPort:     12980,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.agora/agora.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".agora", "agora.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/agora/agora.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/agora/agora.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("agora", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}
