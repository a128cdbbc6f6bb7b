package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/corporate-agent/internal/bootstrap"
	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/usecase"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/office"
	"github.com/kirillkom/corporate-agent/internal/observability/logging"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type reviewFlags struct {
	out           string
	jsonOut       bool
	save          bool
	failOnMissing bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(ctx, os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err once and returns the process exit code for it.
func reportError(w io.Writer, err error) int {
	fmt.Fprintln(w, "Error:", err)
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func newRootCmd(ctx context.Context, stdout io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Review ADGM company incorporation documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return codeError(3, "%s", err)
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), "reviewctl", config.Load().LogLevel))
			return nil
		},
	}
	root.SetContext(ctx)
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")

	root.AddCommand(
		newReviewCmd(),
		newIngestCmd(),
		newFetchRefsCmd(),
		newSamplesCmd(),
	)
	return root
}

func newReviewCmd() *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "review <file>...",
		Short: "Review documents and write an archive with the report and annotated copies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, args, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.out, "out", usecase.ArchiveFilename, "Archive output path; empty skips the archive")
	f.BoolVar(&flags.jsonOut, "json", false, "Print the review run as JSON to stdout")
	f.BoolVar(&flags.save, "save", false, "Also save outputs to the configured OUTPUT_BACKEND")
	f.BoolVar(&flags.failOnMissing, "fail-on-missing", false, "Exit 2 when required documents are missing")
	return cmd
}

func runReview(cmd *cobra.Command, paths []string, flags reviewFlags) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.WarmReferences(ctx); err != nil {
		slog.Warn("reference_warmup_failed", "error", err)
	}

	uploads := make([]domain.UploadedDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return codeError(3, "read %s: %s", p, err)
		}
		uploads = append(uploads, domain.UploadedDocument{Name: filepath.Base(p), Content: content})
	}

	run, err := app.ReviewUC.Review(ctx, uploads)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}

	if flags.out != "" {
		archive, err := app.ExportUC.Archive(ctx, run)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if err := os.WriteFile(flags.out, archive, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}
	if flags.save {
		prefix, err := app.ExportUC.SaveOutputs(ctx, run)
		if err != nil {
			return fmt.Errorf("save outputs: %w", err)
		}
		slog.Info("outputs_saved", "prefix", prefix)
	}

	out := cmd.OutOrStdout()
	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
	} else {
		printSummary(out, run, flags.out)
	}

	if flags.failOnMissing && len(run.Report.MissingDocuments) > 0 {
		return codeError(2, "%d required document(s) missing", len(run.Report.MissingDocuments))
	}
	return nil
}

func printSummary(w io.Writer, run *domain.ReviewRun, archivePath string) {
	report := run.Report
	fmt.Fprintf(w, "Review %s\n", run.ID)
	fmt.Fprintf(w, "Process: %s\n", report.Process)
	fmt.Fprintf(w, "Documents: %d uploaded, %d required\n", report.DocumentsUploaded, report.RequiredDocuments)
	for _, missing := range report.MissingDocuments {
		fmt.Fprintf(w, "Missing: %s\n", missing)
	}
	fmt.Fprintf(w, "Issues: High %d, Medium %d, Low %d\n",
		run.SeverityCounts[domain.SeverityHigh],
		run.SeverityCounts[domain.SeverityMedium],
		run.SeverityCounts[domain.SeverityLow],
	)
	for _, doc := range run.Documents {
		if doc.Error != "" {
			fmt.Fprintf(w, "  %s: unreadable (%s)\n", doc.Name, doc.Error)
			continue
		}
		fmt.Fprintf(w, "  %s [%s]: %d issue(s)\n", doc.Name, doc.Type, len(doc.Issues))
		for _, warning := range doc.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warning)
		}
	}
	if archivePath != "" {
		fmt.Fprintf(w, "Archive: %s\n", archivePath)
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest reference files into the persistent (qdrant) retriever",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend := config.Load().RetrieverBackend; backend != config.RetrieverQdrant {
				return codeError(3, "ingest needs RETRIEVER_BACKEND=%s; the %s index is rebuilt from REFERENCE_DIR on every run", config.RetrieverQdrant, backend)
			}
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			dir := app.Config.ReferenceDir
			if len(args) == 1 {
				dir = args[0]
			}
			chunks, err := app.ReferenceUC.IngestDirectory(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d chunk(s) from %s\n", chunks, dir)
			return nil
		},
	}
}

func newFetchRefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-refs [dir]",
		Short: "Download the reference catalog into the reference directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			dir := app.Config.ReferenceDir
			if len(args) == 1 {
				dir = args[0]
			}
			count, err := app.ReferenceUC.FetchCatalog(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("fetch references: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d reference file(s) into %s\n", count, dir)
			return nil
		},
	}
}

func newSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples [dir]",
		Short: "Write the demo incorporation documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "samples"
			if len(args) == 1 {
				dir = args[0]
			}
			paths, err := office.WriteSamples(dir)
			if err != nil {
				return fmt.Errorf("write samples: %w", err)
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

// newApp builds the application without the message queue; CLI ingestion
// always runs in-process.
func newApp(ctx context.Context) (*bootstrap.App, error) {
	cfg := config.Load()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{SkipQueue: true})
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return nil, codeError(3, "%s", err)
		}
		return nil, err
	}
	return app, nil
}
