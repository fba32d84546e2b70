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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agoralabs-io/agora"
	"github.com/agoralabs-io/agora/internal/config"
	"github.com/agoralabs-io/agora/staking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()
	if err := run(cfg, logger); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", programName)
	opts := []agora.ConfigOptionFunc{
		agora.WithLogger(logger),
		agora.WithDataDir(cfg.DatabasePath),
		agora.WithTokenSymbol(cfg.TokenSymbol),
		agora.WithTokenDecimals(cfg.TokenDecimals),
		agora.WithPenaltyRate(cfg.PenaltyRateBps),
		agora.WithQuorum(cfg.QuorumBps),
		agora.WithApprovalThreshold(cfg.ApprovalThresholdBps),
		agora.WithRewardInterval(cfg.RewardIntervalDays),
		// Enable metrics with default prometheus registry
		agora.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	if cfg.PenaltyDestination != "" {
		opts = append(opts, agora.WithPenaltyDestination(
			staking.PenaltyDestination(cfg.PenaltyDestination),
		))
	}
	if cfg.VotingWindowDays > 0 {
		opts = append(opts, agora.WithVotingWindow(
			time.Duration(cfg.VotingWindowDays)*24*time.Hour,
		))
	}
	a, err := agora.New(agora.NewConfig(opts...))
	if err != nil {
		return err
	}

	// Metrics listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.MetricsBindAddr,
			cfg.MetricsPort,
		),
		"component", programName,
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.MetricsBindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", programName,
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	<-signalCtx.Done()
	logger.Info("signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		30*time.Second,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the participation economy service",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			serveRun(cmd, args, cfg)
		},
	}
}
