package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"exam_project/internal/app"
	"exam_project/internal/config"
	"exam_project/internal/logger"
	"exam_project/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examfetch",
		Short: "Download exam PDFs from the NCU calculus portal",
		Long: `examfetch logs into the portal with a browser, crawls the exam history
listing of one resource and downloads every question and answer PDF into
<OUTPUT_DIR>/<RESOURCE>/exams/<num>/{questions,answers}/.

Settings are read from the environment or a .env file.`,
		SilenceUsage: true,
		RunE:         runPipeline,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Log in, optionally export exercises, download all pages",
			RunE:  runPipeline,
		},
		&cobra.Command{
			Use:   "export",
			Short: "Log in and export only the suggested exercises page",
			RunE:  runExport,
		},
		newHistoryCmd(),
	)

	return root
}

// setup loads the config, the logger and the app. The returned func releases them.
func setup() (*app.App, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		logCloser.Close()
		return nil, nil, nil, err
	}

	return a, log, func() {
		a.Close()
		logCloser.Close()
	}, nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	a, log, cleanup, err := setup()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer cleanup()

	summary, err := a.Run(cmd.Context())
	if err != nil {
		log.Error("run aborted", slog.Any("error", err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pages %d (failed %d), downloaded %d, skipped %d, failed %d\n",
		summary.Pages, summary.PagesFailed, summary.Downloaded, summary.Skipped, summary.Failed)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, log, cleanup, err := setup()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer cleanup()

	links, err := a.Export(cmd.Context())
	if err != nil {
		log.Error("export failed", slog.Any("error", err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d links\n", len(links))
	return nil
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := setup()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			defer cleanup()

			runs, err := a.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")

	return cmd
}

func printHistory(out io.Writer, runs []models.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRESOURCE\tPAGES\tDOWNLOADED\tSKIPPED\tFAILED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Resource,
			r.Pages-r.PagesFailed, r.Pages,
			r.Downloaded, r.Skipped, r.Failed,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
		)
	}
	return w.Flush()
}
