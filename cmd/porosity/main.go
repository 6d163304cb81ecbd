package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"porosity/adapters/recordstore/httpstore"
	"porosity/adapters/recordstore/sqlstore"
	"porosity/adapters/table"
	"porosity/app"
	"porosity/domain/core"
	"porosity/internal"
	"porosity/internal/api"
	"porosity/internal/config"
	"porosity/internal/metrics"
	"porosity/internal/watch"
	"porosity/ports"
)

// env is the configuration shared by every subcommand, loaded before it runs
type env struct {
	cfg     *config.Config
	metrics *metrics.Metrics
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{}
	rootCmd := &cobra.Command{
		Use:           "porosity",
		Short:         "Pore statistics for additively manufactured samples",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load environment variables from .env file
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("read .env: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.LogLevel))
			e.cfg = cfg
			e.metrics = metrics.New()
			return nil
		},
	}

	rootCmd.AddCommand(
		newDownloadCmd(e),
		newBreakoutCmd(e),
		newIngestCmd(e),
		newEnrichCmd(e),
		newMergeCmd(e),
		newRefineCmd(e),
		newUploadCmd(e),
		newReportCmd(e),
		newRunCmd(e),
		newServeCmd(e),
		newWatchCmd(e),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pipeline builds a pipeline; the record store is opened only when withStore is set.
func (e *env) pipeline(ctx context.Context, withStore bool) (*app.Pipeline, func(), error) {
	var store ports.RecordStore
	closeFn := func() {}
	if withStore {
		s, c, err := openStore(ctx, e.cfg)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = s, c
	}

	var partVolumes map[core.SampleID]float64
	if path := e.cfg.Paths.PartVolumeTable; path != "" {
		pv, err := table.ReadPartVolumes(path)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("part volume table: %w", err)
		}
		partVolumes = pv
	}

	p := app.NewPipeline(store, app.Options{
		Workers:           e.cfg.Pipeline.Workers,
		Builds:            e.cfg.Pipeline.Builds,
		HeatTreatedBuilds: e.cfg.Pipeline.HeatTreatedBuilds,
		RecordSuffix:      e.cfg.Pipeline.RecordSuffix,
		UploadSuffix:      e.cfg.Pipeline.UploadSuffix,
		Thresholds:        e.cfg.Thresholds,
		PartVolumes:       partVolumes,
	}, e.metrics)
	return p, closeFn, nil
}

func openStore(ctx context.Context, cfg *config.Config) (ports.RecordStore, func(), error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, nil, err
	}
	switch cfg.Store.Kind {
	case "sql":
		s, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := httpstore.New(httpstore.Config{
			BaseURL: cfg.Store.URL,
			APIKey:  cfg.Store.APIKey,
			Timeout: cfg.Store.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

// report prints a stage summary and turns item failures into an error.
func report(w io.Writer, result app.StageResult, err error) error {
	fmt.Fprintf(w, "%-9s %4d processed %4d skipped %4d failed  %s\n",
		result.Stage, result.Processed, result.Skipped, len(result.Failures), result.Duration.Round(time.Millisecond))
	for _, f := range result.Failures {
		fmt.Fprintf(w, "          %s: %v\n", f.Item, f.Err)
	}
	if err != nil {
		return err
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%s: %d items failed", result.Stage, len(result.Failures))
	}
	return nil
}

// localStage wires a subcommand that runs one stage without the record store
func localStage(e *env, use, short string, run func(ctx context.Context, p *app.Pipeline) (app.StageResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := e.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()
			result, err := run(cmd.Context(), p)
			return report(cmd.OutOrStdout(), result, err)
		},
	}
}

func newDownloadCmd(e *env) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download [dataset-id]",
		Short: "Fetch dataset files from the record store",
		Long: `Fetch every file of a dataset into a local directory.

Without a dataset ID both the sample record dataset (SOURCE_DATASET, into
RECORD_DIR) and the measurement table dataset (TABLE_DATASET, into TABLE_DIR)
are fetched.

Example: porosity download 74 --dir ./data/74`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := e.pipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			targets := map[string]string{
				e.cfg.Pipeline.SourceDataset: e.cfg.Paths.RecordDir,
				e.cfg.Pipeline.TableDataset:  e.cfg.Paths.TableDir,
			}
			if len(args) == 1 {
				if dir == "" {
					dir = filepath.Join(e.cfg.Paths.DataDir, args[0])
				}
				targets = map[string]string{args[0]: dir}
			}
			for dataset, dest := range targets {
				id, err := core.ParseDatasetID(dataset)
				if err != nil {
					return err
				}
				result, err := p.Download(cmd.Context(), id, dest)
				if err := report(cmd.OutOrStdout(), result, err); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Destination directory (default DATA_DIR/<dataset-id>)")
	return cmd
}

func newBreakoutCmd(e *env) *cobra.Command {
	return localStage(e, "breakout", "Split multi-record build files into one file per sample",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Breakout(ctx, e.cfg.Paths.RecordDir)
		})
}

func newIngestCmd(e *env) *cobra.Command {
	return localStage(e, "ingest", "Compute porosity records from measurement tables",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Ingest(ctx, e.cfg.Paths.TableDir)
		})
}

func newEnrichCmd(e *env) *cobra.Command {
	return localStage(e, "enrich", "Merge porosity records into sample records",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Enrich(ctx, e.cfg.Paths.TableDir, e.cfg.Paths.RecordDir)
		})
}

func newMergeCmd(e *env) *cobra.Command {
	return localStage(e, "merge", "Collect per-sample records into one file per build",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Merge(ctx, e.cfg.Paths.RecordDir)
		})
}

func newRefineCmd(e *env) *cobra.Command {
	return localStage(e, "refine", "Reduce merged records to model properties and labels",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Refine(ctx, e.cfg.Paths.RecordDir)
		})
}

func newReportCmd(e *env) *cobra.Command {
	return localStage(e, "report", "Write Markdown, HTML and XLSX summaries of refined records",
		func(ctx context.Context, p *app.Pipeline) (app.StageResult, error) {
			return p.Report(ctx, e.cfg.Paths.RecordDir)
		})
}

func newUploadCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [dataset-id]",
		Short: "Upload merged build files to the record store (default TARGET_DATASET)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset := e.cfg.Pipeline.TargetDataset
			if len(args) == 1 {
				dataset = args[0]
			}
			id, err := core.ParseDatasetID(dataset)
			if err != nil {
				return err
			}
			p, closeFn, err := e.pipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()
			result, err := p.Upload(cmd.Context(), e.cfg.Paths.RecordDir, id)
			return report(cmd.OutOrStdout(), result, err)
		},
	}
	return cmd
}

func newRunCmd(e *env) *cobra.Command {
	var fetch, publish bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, enrich, merge, refine and report",
		Long: `Run the local stages in order: ingest, enrich, merge, refine, report.

--fetch downloads both input datasets and breaks out the build files first;
--publish uploads the updated build files to TARGET_DATASET afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p, closeFn, err := e.pipeline(ctx, fetch || publish)
			if err != nil {
				return err
			}
			defer closeFn()

			if fetch {
				for dataset, dest := range map[string]string{
					e.cfg.Pipeline.SourceDataset: e.cfg.Paths.RecordDir,
					e.cfg.Pipeline.TableDataset:  e.cfg.Paths.TableDir,
				} {
					result, err := p.Download(ctx, core.DatasetID(dataset), dest)
					if err := report(out, result, err); err != nil {
						return err
					}
				}
				result, err := p.Breakout(ctx, e.cfg.Paths.RecordDir)
				if err := report(out, result, err); err != nil {
					return err
				}
			}

			results, runErr := p.Run(ctx, app.RunOptions{TableDir: e.cfg.Paths.TableDir, RecordDir: e.cfg.Paths.RecordDir})
			failed := 0
			for _, r := range results {
				if err := report(out, r, nil); err != nil {
					failed++
				}
			}
			if runErr != nil {
				return runErr
			}

			if publish {
				result, err := p.Upload(ctx, e.cfg.Paths.RecordDir, core.DatasetID(e.cfg.Pipeline.TargetDataset))
				if err := report(out, result, err); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d stages had failed items", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetch, "fetch", false, "Download inputs and break out build files first")
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload the merged build files afterwards")
	return cmd
}

func newServeCmd(e *env) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the porosity API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = e.cfg.Server.Port
			}
			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           api.NewServer(api.Config{Thresholds: e.cfg.Thresholds, Metrics: e.metrics}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("porosity API listening on :%s", port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT)")
	return cmd
}

func newWatchCmd(e *env) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest and enrich measurement tables as they appear in TABLE_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := e.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			return watch.Tables(cmd.Context(), e.cfg.Paths.TableDir, settle, func(ctx context.Context, path string) error {
				out, err := p.IngestTable(path)
				if app.IsSkipped(err) {
					log.Printf("%s: %v", filepath.Base(path), err)
					return nil
				}
				if err != nil {
					return err
				}
				if _, err := p.EnrichSample(out, e.cfg.Paths.RecordDir); err != nil && !app.IsSkipped(err) {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "Quiet period before a changed table is ingested")
	return cmd
}
