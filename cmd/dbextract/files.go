package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dbextract/pkg/config"
	"dbextract/pkg/naming"
	"dbextract/pkg/storage"
	"dbextract/pkg/writer"
)

// filesCmd represents the files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect the extracted output files",
	Long: `Inspect the bucket files produced by previous extractions.

All subcommands read the output directory, format and aggregation from the
configuration, so the same config file used for extraction applies here.`,
}

// filesListCmd represents the files list command
var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bucket files in chronological order",
	RunE:  runFilesList,
}

// filesLatestCmd represents the files latest command
var filesLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent period with data",
	RunE:  runFilesLatest,
}

// filesLoadCmd represents the files load command
var filesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Merge all bucket files and print a row count summary",
	Long: `Read every bucket file in the output directory, merge the rows in
chronological order and print the combined column set and row count.`,
	RunE: runFilesLoad,
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesLatestCmd)
	filesCmd.AddCommand(filesLoadCmd)
}

// openFileManager builds a storage manager from the loaded configuration
func openFileManager() (*storage.Manager, error) {
	flags := map[string]interface{}{}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.MergeCommandLineFlags(flags)

	granularity, err := naming.ParseGranularity(cfg.Extraction.Aggregation)
	if err != nil {
		return nil, err
	}
	format, err := writer.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	strategy := naming.NewStrategy(cfg.Output.BaseName, granularity)
	return storage.NewManager(cfg.Output.Directory, strategy, format.Extension())
}

func runFilesList(cmd *cobra.Command, args []string) error {
	files, err := openFileManager()
	if err != nil {
		return err
	}

	paths, err := files.ListFiles()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Printf("No bucket files in %s\n", files.Dir())
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d bytes\n", filepath.Base(path), info.Size())
	}
	return nil
}

func runFilesLatest(cmd *cobra.Command, args []string) error {
	files, err := openFileManager()
	if err != nil {
		return err
	}

	period, ok, err := files.LatestPeriod()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("No bucket files in %s\n", files.Dir())
		return nil
	}

	fmt.Printf("Latest period starts %s\n", period.Format("2006-01-02"))
	return nil
}

func runFilesLoad(cmd *cobra.Command, args []string) error {
	files, err := openFileManager()
	if err != nil {
		return err
	}

	paths, err := files.ListFiles()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Printf("No bucket files in %s\n", files.Dir())
		return nil
	}

	batch, err := writer.LoadDir(files.Dir())
	if err != nil {
		return err
	}

	fmt.Printf("Files:   %d\n", len(paths))
	fmt.Printf("Columns: %v\n", batch.Columns)
	fmt.Printf("Rows:    %d\n", batch.RowCount())
	return nil
}
