package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"formrunner/internal/attempt"
	"formrunner/internal/ingest"
)

var runReportPath string

var runCmd = &cobra.Command{
	Use:   "run <csv-file | csv-url | google-sheets-url>",
	Short: "Process a batch of contact records and write the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rows, err := loadRows(args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("source %s contains no data rows", args[0])
		}

		agg, err := newAggregator(ctx, cfg, uuid.NewString())
		if err != nil {
			return err
		}

		bar, _ := pterm.DefaultProgressbar.
			WithTotal(len(rows)).
			WithTitle("Submitting forms").
			Start()
		agg.OnResult = func(res attempt.Result, final bool) {
			switch res.Outcome {
			case attempt.OutcomeSuccess:
				if res.Verified {
					pterm.Success.Printfln("%s submitted (try %d, %d fields)", res.Website, res.Try, res.FieldsFilled)
				} else {
					pterm.Warning.Printfln("%s submitted, confirmation unclear (try %d)", res.Website, res.Try)
				}
			default:
				pterm.Error.Printfln("%s: %s (try %d) %s", res.Website, res.Outcome, res.Try, res.Error)
			}
			if final {
				bar.Increment()
			}
		}

		rep := agg.Execute(ctx, rows)
		_, _ = bar.Stop()

		path := cfg.ReportPath
		if runReportPath != "" {
			path = runReportPath
		}
		if err := rep.WriteFile(path); err != nil {
			return err
		}

		pterm.DefaultSection.Println("Run summary")
		pterm.Printfln("Records:       %d", rep.Summary.Total)
		pterm.Printfln("Successful:    %d", rep.Summary.Successful)
		pterm.Printfln("Failed:        %d", rep.Summary.Failed)
		pterm.Printfln("Success rate:  %.0f%%", rep.Summary.SuccessRate*100)
		pterm.Printfln("Fields filled: %d", rep.Summary.TotalFieldsFilled)
		pterm.Printfln("Report:        %s", path)
		if rep.Cancelled {
			pterm.Warning.Println("Run was cancelled; report covers completed records only.")
		}
		return nil
	},
}

func loadRows(source string) (ingest.Rows, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return ingest.Fetch(nil, source)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("source %s: %w", source, err)
	}
	return ingest.ParseFile(source)
}

func init() {
	runCmd.Flags().StringVarP(&runReportPath, "report", "r", "", "report output path (overrides config)")
	rootCmd.AddCommand(runCmd)
}
