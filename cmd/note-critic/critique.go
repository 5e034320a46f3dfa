// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/note-critic/internal/critic"
	"github.com/pdiddy/note-critic/internal/mission"
	"github.com/pdiddy/note-critic/pkg/types"
)

const defaultModel = "claude-sonnet-4-5-20250929"

var critiqueCmd = &cobra.Command{
	Use:   "critique [mission-id]",
	Short: "Audit a mission's unchecked notes against their sources",
	Long: `Critique runs the note critic over every unchecked note in a mission,
strictly in order. Each note is verified against its source snippet, the
section goal, and the mission's active goals; the verdict and full critique
are persisted. Notes whose audit fails stay unchecked and are retried on the
next run.

Interrupt with Ctrl-C or mark the mission stopped ("mission stop") to halt
the batch between notes; already-critiqued notes keep their new state.`,
	Args: cobra.ExactArgs(1),
	RunE: runCritique,
}

func runCritique(cmd *cobra.Command, args []string) error {
	missionID := args[0]

	cfg := criticConfigFromFlags(cmd)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: set critic.api_key, NOTE_CRITIC_CRITIC_API_KEY, or .secrets/anthropic-api-key")
	}

	store, err := mission.NewStore(storeConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	backend := critic.NewClaudeBackend(cfg.AIConfig)
	worker := critic.NewWorker(backend, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	halt := func(id string) bool {
		if ctx.Err() != nil {
			return true
		}
		return store.IsStopped(ctx, id)
	}

	summary, err := critic.CritiqueAll(ctx, store, worker, missionID, halt, os.Stdout)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()
	fmt.Println(green("critiqued: %d", summary.Critiqued))
	if summary.Failed > 0 {
		fmt.Println(yellow("failed (left unchecked): %d", summary.Failed))
	}
	if summary.Halted > 0 {
		fmt.Println(yellow("halted (not attempted): %d", summary.Halted))
	}
	return nil
}

// criticConfigFromFlags resolves critic settings: flags override config
// file / environment, which override the secrets directory.
func criticConfigFromFlags(cmd *cobra.Command) types.CriticConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("critic.model")
	}
	if model == "" {
		model = defaultModel
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("critic.api_key")
	}
	apiKey = secretDefault("anthropic-api-key", apiKey)

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if maxRetries <= 0 {
		maxRetries = viper.GetInt("critic.max_retries")
	}

	maxThoughts, _ := cmd.Flags().GetInt("max-thoughts")
	if maxThoughts <= 0 {
		maxThoughts = viper.GetInt("critic.max_recent_thoughts")
	}

	timeout := viper.GetDuration("critic.timeout")
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return types.CriticConfig{
		AIConfig: types.AIConfig{
			Model:      model,
			APIKey:     apiKey,
			MaxRetries: maxRetries,
			Timeout:    timeout,
		},
		MaxRecentThoughts: maxThoughts,
	}
}

func storeConfigFromFlags(cmd *cobra.Command) types.StoreConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	return types.StoreConfig{DataDir: dataDir}
}

func init() {
	critiqueCmd.Flags().String("model", "", "AI model identifier for critique")
	critiqueCmd.Flags().String("api-key", "", "AI API key (overrides config and secrets)")
	critiqueCmd.Flags().Int("max-retries", 0, "retry attempts for rate-limited API calls")
	critiqueCmd.Flags().Int("max-thoughts", 0, "recent thought entries included per prompt")

	rootCmd.AddCommand(critiqueCmd)
}
