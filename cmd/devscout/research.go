package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devscout/devscout/config"
	"github.com/devscout/devscout/internal/agent/core"
	"github.com/devscout/devscout/internal/agent/telemetry"
)

func researchCMD() *cobra.Command {
	var cfgPath string
	var profile string
	var timeout time.Duration
	research := &cobra.Command{
		Use:   "research <capability>",
		Short: "Run one discovery pass and print the resulting JSON records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if profile != "" {
				switch profile {
				case core.ProfileQuick, core.ProfileElite, core.ProfileComprehensive:
					cfg.Agents.Profile = profile
				default:
					return fmt.Errorf("unknown discovery profile %q", profile)
				}
			}

			// Progress goes to stderr so stdout stays parseable.
			logger := log.New(cmd.ErrOrStderr(), "[RESEARCH] ", log.LstdFlags)

			tel := telemetry.NewTelemetry(cfg.Telemetry)
			defer tel.Shutdown()

			orch, err := core.NewOrchestrator(cfg, tel)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout == 0 {
				timeout = cfg.General.MaxProcessingTime
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			capability := strings.Join(args, " ")
			logger.Printf("starting %s discovery for %q", cfg.Agents.Profile, capability)
			result, err := orch.Run(ctx, capability)
			if err != nil {
				return err
			}
			logger.Printf("run %s finished: %d turns, %d tool calls, %d tokens, $%.4f",
				result.ID, result.Turns, result.ToolCalls, result.TokensUsed, result.CostEstimate)

			fmt.Fprintln(cmd.OutOrStdout(), result.FinalOutput)
			return nil
		},
	}
	research.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ., ./config and the executable dir)")
	research.Flags().StringVar(&profile, "profile", "", "discovery profile: quick, elite or comprehensive")
	research.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this duration (default general.max_processing_time)")
	return research
}
