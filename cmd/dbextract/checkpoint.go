package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dbextract/pkg/checkpoint"
	"dbextract/pkg/config"
)

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear the extraction checkpoint",
	Long: `Inspect or clear the checkpoint left behind by an extraction run.

The checkpoint records the last fetch window that was attempted and whether
its output landed safely. A run that stops partway leaves an incomplete
checkpoint; the next run with the continue policy redoes exactly that window.`,
}

// checkpointShowCmd represents the checkpoint show command
var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current checkpoint state",
	RunE:  runCheckpointShow,
}

// checkpointClearCmd represents the checkpoint clear command
var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the checkpoint",
	Long: `Delete the checkpoint. The next extraction run will start from the
requested range start as if no previous run had happened. Output files are
not touched.`,
	RunE: runCheckpointClear,
}

var checkpointClearYes bool

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointClearCmd)

	checkpointClearCmd.Flags().BoolVarP(&checkpointClearYes, "yes", "y", false, "skip the confirmation prompt")
}

// openConfiguredStore builds the checkpoint store the config points at
func openConfiguredStore() (checkpoint.Store, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if cfg.Resume.CheckpointBackend == "sqlite" {
		return checkpoint.NewSQLiteStore(checkpoint.SQLitePath(cfg.Output.Directory))
	}
	return checkpoint.NewFileStore(checkpoint.DefaultPath(cfg.Output.Directory))
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore()
	if err != nil {
		return err
	}

	summary, err := checkpoint.Describe(store)
	if err != nil {
		return fmt.Errorf("checkpoint is unreadable: %w", err)
	}
	if summary == nil {
		fmt.Println("No checkpoint. The next run starts from the requested range start.")
		return nil
	}

	fmt.Printf("Last processed: %v\n", summary["last_processed"])
	fmt.Printf("Complete:       %v\n", summary["complete"])
	fmt.Printf("Created:        %v\n", summary["created_at"])
	fmt.Printf("Updated:        %v (%v ago)\n", summary["updated_at"], summary["age"])
	return nil
}

func runCheckpointClear(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore()
	if err != nil {
		return err
	}

	if !store.Exists() {
		fmt.Println("No checkpoint to clear.")
		return nil
	}

	if !checkpointClearYes {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Delete the checkpoint? The next run will refetch from the range start. (y/N): ")
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Checkpoint cleared.")
	return nil
}
