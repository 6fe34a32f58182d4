package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cognicore/gazeta/internal/export"
	"github.com/cognicore/gazeta/internal/gazette"
	"github.com/cognicore/gazeta/pkg/gazeta"
	"github.com/cognicore/gazeta/pkg/gazeta/config"
	"github.com/cognicore/gazeta/pkg/gazeta/metrics"
	"github.com/cognicore/gazeta/pkg/gazeta/pagesource"
	"github.com/cognicore/gazeta/pkg/gazeta/store"
	"github.com/cognicore/gazeta/pkg/gazeta/store/sqlite"
)

type rootOptions struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gazeta",
		Short:         "Mine municipal gazettes for publicly funded shows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "gazeta.db", "SQLite database path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline decisions")

	root.AddCommand(
		newMineCmd(opts),
		newListCmd(opts),
		newExportCmd(opts),
		newValidateConfigCmd(),
	)
	return root
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

type mineOptions struct {
	configPath  string
	pdfs        []string
	texts       []string
	landingURL  string
	outPath     string
	metricsFile string
	parallel    int
}

func newMineCmd(root *rootOptions) *cobra.Command {
	opts := &mineOptions{}

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine gazette editions and store the events found",
		Long: "Mine reads local PDFs (--pdf), text dumps with form-feed page breaks (--text),\n" +
			"or downloads the current edition from the gazette landing page (--url).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Mining config YAML (defaults built in)")
	cmd.Flags().StringSliceVar(&opts.pdfs, "pdf", nil, "Gazette PDF file (repeatable)")
	cmd.Flags().StringSliceVar(&opts.texts, "text", nil, "Gazette text dump, pages split by form feed (repeatable)")
	cmd.Flags().StringVar(&opts.landingURL, "url", "", "Landing page holding the current edition, e.g. "+gazette.DefaultLandingURL)
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Also write the events found to this JSONL file")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format")
	cmd.Flags().IntVar(&opts.parallel, "parallel", gazeta.DefaultParallelism, "Documents mined at once")
	return cmd
}

func runMine(cmd *cobra.Command, root *rootOptions, opts *mineOptions) error {
	if len(opts.pdfs) == 0 && len(opts.texts) == 0 && opts.landingURL == "" {
		return errors.New("one of --pdf, --text or --url is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := root.logger()
	loader := config.Loader{ConfigPath: opts.configPath, Logger: logger}
	components, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reqs, err := buildRequests(ctx, opts)
	if err != nil {
		return err
	}

	st, err := sqlite.OpenSQLite(ctx, root.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := gazeta.New(gazeta.Options{
		Store:       st,
		Pipeline:    components.Pipeline,
		Metrics:     metrics.New(reg),
		Logger:      logger,
		Parallelism: opts.parallel,
	})
	defer m.Close()

	log.Printf("Mining %d document(s)", len(reqs))
	reports, mineErr := m.MineAll(ctx, reqs)

	var found []store.Event
	for _, r := range reports {
		if r.RunID == "" {
			continue
		}
		s := r.Summary
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  pages=%d unreadable=%d events=%d inserted=%d state=%s\n",
			r.RunID, r.SourceURL, s.PagesProcessed, s.PagesWithErrors, len(r.Events), r.Inserted, s.State)
		for _, ev := range r.Events {
			stored, err := m.Event(context.WithoutCancel(ctx), ev.ID)
			if err != nil {
				continue
			}
			found = append(found, stored)
		}
	}

	if opts.outPath != "" {
		if err := export.WriteJSONLFile(opts.outPath, found); err != nil {
			return err
		}
		log.Printf("Wrote %d event(s) to %s", len(found), opts.outPath)
	}
	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return mineErr
}

func buildRequests(ctx context.Context, opts *mineOptions) ([]gazeta.MineRequest, error) {
	var reqs []gazeta.MineRequest

	for _, path := range opts.pdfs {
		src, err := pagesource.OpenPDFFile(path)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, gazeta.MineRequest{SourceURL: fileURL(path), Source: src})
	}

	for _, path := range opts.texts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read text %s: %w", path, err)
		}
		reqs = append(reqs, gazeta.MineRequest{SourceURL: fileURL(path), Source: pagesource.FromText(string(data))})
	}

	if opts.landingURL != "" {
		client := gazette.NewClient()
		pdfURL, content, err := client.Latest(ctx, opts.landingURL)
		if err != nil {
			return nil, err
		}
		log.Printf("Downloaded %s (%d bytes)", pdfURL, len(content))
		src, err := pagesource.OpenPDF(content)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, gazeta.MineRequest{SourceURL: pdfURL, Source: src})
	}

	return reqs, nil
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

type listOptions struct {
	city  string
	limit int
	all   bool
}

func newListCmd(root *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored events, upcoming ones by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := sqlite.OpenSQLite(ctx, root.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			m := gazeta.New(gazeta.Options{Store: st})
			defer m.Close()

			var events []store.Event
			if opts.all {
				events, err = st.ListEvents(ctx, store.Filter{Municipality: opts.city, Limit: opts.limit})
			} else {
				events, err = m.Upcoming(ctx, opts.city, opts.limit)
			}
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
				return nil
			}
			return export.WriteTable(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().StringVar(&opts.city, "city", "", "Only this municipality")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "Maximum events listed (0 for no limit)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Include past events")
	return cmd
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		outPath string
		city    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := sqlite.OpenSQLite(ctx, root.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer st.Close()

			events, err := st.ListEvents(ctx, store.Filter{Municipality: city})
			if err != nil {
				return err
			}
			if outPath == "-" {
				return export.WriteJSONL(cmd.OutOrStdout(), events)
			}
			if err := export.WriteJSONLFile(outPath, events); err != nil {
				return err
			}
			log.Printf("Exported %d event(s) to %s", len(events), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Output JSONL file, - for stdout")
	cmd.Flags().StringVar(&city, "city", "", "Only this municipality")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newValidateConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check a mining config file and build the pipeline from it",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			loader := config.Loader{ConfigPath: configPath}
			components, err := loader.Load()
			if err != nil {
				return err
			}
			c := components.Config
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: ok (window=%d threshold=%d veto=%d triggers=%d rules=%d categories=%d) in %s\n",
				configPath, c.WindowSize, c.ScoreThreshold, len(c.VetoTerms), len(c.TriggerTerms),
				len(c.ArtistRules), len(c.Categories), time.Since(start).Round(time.Microsecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Mining config YAML")
	cmd.MarkFlagRequired("config")
	return cmd
}
