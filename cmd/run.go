// File: cmd/run.go
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run [record.json]",
	Short: "Execute a single filing from a case record file (or stdin) and exit.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		record, err := readRecord(args)
		if err != nil {
			return err
		}

		logger := observability.GetLogger()
		deps, cleanup, err := buildDependencies(ctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		result := deps.runner.Execute(ctx, record)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to print result: %w", err)
		}
		if !result.Succeeded() {
			return fmt.Errorf("run %s finished with status %s", result.RunID, result.Status)
		}
		return nil
	},
}

// readRecord decodes the case record from the file argument, or from
// stdin when the argument is absent or "-".
func readRecord(args []string) (schemas.CaseRecord, error) {
	var record schemas.CaseRecord

	var src io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return record, fmt.Errorf("failed to open record file: %w", err)
		}
		defer f.Close()
		src = f
	}

	if err := json.NewDecoder(src).Decode(&record); err != nil {
		return record, fmt.Errorf("failed to decode case record: %w", err)
	}
	if strings.TrimSpace(record.RecordID) == "" {
		return record, fmt.Errorf("case record is missing record_id")
	}
	return record, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
