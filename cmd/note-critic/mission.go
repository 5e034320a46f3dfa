// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/note-critic/internal/mission"
	"github.com/pdiddy/note-critic/pkg/types"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Manage missions and their research notes",
	Long: `Mission manages the local mission store. Use subcommands to seed a
mission from a YAML file, list its notes and verification states, or mark
it stopped.`,
}

// --- init subcommand ---

var missionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a mission from a YAML seed file",
	Long: `Init reads a mission seed file and persists the mission, its goals, and
its notes. Note records are validated strictly: unknown top-level note
fields are rejected, while source_metadata keeps arbitrary extra keys.

Seed file shape:

  mission_id: optional-id
  user_request: what the research mission is about
  goals:
    - first goal
  notes:
    - content: note body
      source_type: document
      source_id: doc_001
      source_metadata:
        title: Source Title
        snippet: supporting text`,
	RunE: runMissionInit,
}

// seedFile is the on-disk mission definition.
type seedFile struct {
	MissionID   string           `yaml:"mission_id"`
	UserRequest string           `yaml:"user_request"`
	Goals       []string         `yaml:"goals"`
	Notes       []map[string]any `yaml:"notes"`
}

func runMissionInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return fmt.Errorf("seed file required: use --file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}
	if seed.UserRequest == "" {
		return fmt.Errorf("seed file missing user_request")
	}

	store, err := mission.NewStore(storeConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	missionID, err := store.CreateMission(ctx, seed.MissionID, seed.UserRequest)
	if err != nil {
		return err
	}

	for _, goal := range seed.Goals {
		if err := store.AddGoal(ctx, missionID, goal); err != nil {
			return err
		}
	}

	for i, fields := range seed.Notes {
		note, err := types.NewNote(fields)
		if err != nil {
			return fmt.Errorf("note %d: %w", i+1, err)
		}
		if err := store.AddNote(ctx, missionID, note); err != nil {
			return err
		}
	}

	fmt.Printf("Created mission %s (%d goals, %d notes)\n", missionID, len(seed.Goals), len(seed.Notes))
	return nil
}

// --- notes subcommand ---

var missionNotesCmd = &cobra.Command{
	Use:   "notes [mission-id]",
	Short: "List a mission's notes and their verification states",
	Args:  cobra.ExactArgs(1),
	RunE:  runMissionNotes,
}

func runMissionNotes(cmd *cobra.Command, args []string) error {
	store, err := mission.NewStore(storeConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	mctx, err := store.GetMission(ctx, args[0])
	if err != nil {
		return err
	}
	if mctx == nil {
		return fmt.Errorf("mission %s not found", args[0])
	}

	fmt.Printf("Mission %s: %s\n\n", mctx.MissionID, mctx.UserRequest)
	if len(mctx.Notes) == 0 {
		fmt.Println("No notes.")
		return nil
	}

	for _, note := range mctx.Notes {
		content := note.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		fmt.Printf("%-14s %s  %-10s  %s\n",
			note.NoteID, statusLabel(note.VerificationStatus), note.NoteType, content)
	}
	fmt.Printf("\n%d notes\n", len(mctx.Notes))
	return nil
}

func statusLabel(status types.VerificationStatus) string {
	switch status {
	case types.StatusPassed:
		return color.GreenString("%-9s", status)
	case types.StatusRevise:
		return color.RedString("%-9s", status)
	default:
		return color.YellowString("%-9s", status)
	}
}

// --- stop subcommand ---

var missionStopCmd = &cobra.Command{
	Use:   "stop [mission-id]",
	Short: "Mark a mission stopped, halting any critique batch between notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := mission.NewStore(storeConfigFromFlags(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.StopMission(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Mission %s stopped\n", args[0])
		return nil
	},
}

func init() {
	missionInitCmd.Flags().StringP("file", "f", "", "mission seed file (YAML)")

	missionCmd.AddCommand(missionInitCmd)
	missionCmd.AddCommand(missionNotesCmd)
	missionCmd.AddCommand(missionStopCmd)

	rootCmd.AddCommand(missionCmd)
}
