package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/jsforge/bundle-pipeline/internal/config"
	"github.com/jsforge/bundle-pipeline/internal/emit"
	"github.com/jsforge/bundle-pipeline/internal/esbuild"
	"github.com/jsforge/bundle-pipeline/internal/logging"
	"github.com/jsforge/bundle-pipeline/internal/pool"
	"github.com/jsforge/bundle-pipeline/internal/progress"
	"github.com/jsforge/bundle-pipeline/internal/report"
	"github.com/jsforge/bundle-pipeline/internal/service"
	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

var logLevelIds = map[logging.Level][]string{
	logging.LevelError: {"error"},
	logging.LevelWarn:  {"warn"},
	logging.LevelInfo:  {"info"},
	logging.LevelDebug: {"debug"},
}

func main() {
	var (
		configFiles []string
		strictMerge bool
		logLevel    = logging.LevelInfo
		outputDir   string
		noProgress  bool
	)

	root := &cobra.Command{
		Use:           "bundlectl",
		Short:         "Build JavaScript bundles for a downstream pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", []string{"bundles.yml"},
		"configuration file or directory (repeatable, merged in order)")
	root.PersistentFlags().BoolVar(&strictMerge, "strict", false,
		"fail on conflicting values when merging configuration files")
	root.PersistentFlags().VarP(
		enumflag.New(&logLevel, "level", logLevelIds, enumflag.EnumCaseInsensitive),
		"log-level", "l", "log verbosity: error, warn, info or debug")

	build := &cobra.Command{
		Use:   "build",
		Short: "Build every configured bundle once and emit the artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFiles, strictMerge)
			if err != nil {
				return err
			}
			if outputDir != "" {
				if cfg.Output == nil {
					cfg.Output = &config.Output{}
				}
				cfg.Output.Dir = outputDir
				cfg.Output.Tarball = ""
			}

			logger := logging.NewLogger(logging.Config{Level: logLevel})

			var bar *progress.Bar
			if !noProgress {
				bar = progress.New(len(cfg.Bundles), "building bundles")
			}
			reporter := report.New(logger).WithProgress(bar)

			artifacts, err := compile.New().
				WithBundler(esbuild.New()).
				WithObserver(reporter).
				Compile(cmd.Context(), cfg.Request())
			bar.Finish()
			if err != nil {
				return err
			}

			if err := emit.Write(cfg.Output, artifacts); err != nil {
				return err
			}

			return reporter.Summary(os.Stdout)
		},
	}
	build.Flags().StringVarP(&outputDir, "output", "o", "",
		"write artifacts to this directory, overriding the configured output")
	build.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Merge and validate the configuration without building",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFiles, strictMerge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: %d bundle(s)\n", len(cfg.Bundles))
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the configured bundles on an interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFiles, strictMerge)
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logging.Config{Level: logLevel})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			name := workerName(configFiles)
			worker := service.NewCompileWorker(name, cfg, esbuild.New(), logger)

			p := pool.New(ctx, 1)
			p.Add(name, worker.Execute)

			if cfg.Service != nil && cfg.Service.Listen != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: cfg.Service.Listen, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Errorf("metrics endpoint: %v", err)
					}
				}()
				defer srv.Close()
				logger.Infof("metrics on %s/metrics", cfg.Service.Listen)
			}

			logger.Infof("watching %d bundle(s)", len(cfg.Bundles))
			<-ctx.Done()
			return nil
		},
	}

	root.AddCommand(build, validate, watch)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(configFiles []string, strict bool) (*config.Root, error) {
	bs, err := config.Merge(configFiles, strict)
	if err != nil {
		return nil, err
	}
	return config.Parse(bs)
}

// workerName derives a stable job name from the first configuration path.
func workerName(configFiles []string) string {
	if len(configFiles) == 0 {
		return "bundles"
	}
	base := filepath.Base(configFiles[0])
	if ext := filepath.Ext(base); ext != "" {
		return base[:len(base)-len(ext)]
	}
	return base
}
