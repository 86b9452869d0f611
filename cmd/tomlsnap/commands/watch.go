package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/openfroyo/tomlsnap/pkg/snapshot"
	"github.com/openfroyo/tomlsnap/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		metricsAddr   string
		maxArenaBytes int64
		debounce      time.Duration
		production    bool
	)

	cmd := &cobra.Command{
		Use:   "watch <path>...",
		Short: "Re-check TOML files whenever they change",
		Long: `Watch files or directories and re-validate every TOML document on change.

Each change triggers a fresh conversion; failures are logged with their
1-based line and column. With --metrics-addr, conversion counters and arena
usage are exposed as Prometheus metrics for scraping.`,
		Example: `  # Watch a single file
  tomlsnap watch config.toml

  # Watch a directory and expose metrics
  tomlsnap watch --metrics-addr :9090 ./configs

  # Production telemetry profile (json logs, OTLP traces)
  tomlsnap watch --production config.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := telemetry.DefaultConfig()
			if production {
				cfg = telemetry.ProductionConfig()
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			cfg.Events.Enabled = true
			if metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.ListenAddress = metricsAddr
			}

			tel, err := telemetry.NewTelemetry(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tel.Shutdown(shutdownCtx)
			}()

			if err := tel.StartMetricsServer(); err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}

			conv, err := snapshot.New(snapshot.Options{
				MaxArenaBytes: maxArenaBytes,
				Logger:        tel.Logger,
				Metrics:       tel.Metrics,
				Tracer:        tel.Tracer,
			})
			if err != nil {
				return err
			}

			w := &watchLoop{
				conv:     conv,
				tel:      tel,
				logger:   tel.Logger.NewComponentLogger("watch"),
				debounce: debounce,
			}
			return w.run(cmd.Context(), args)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	cmd.Flags().Int64Var(&maxArenaBytes, "max-arena-bytes", 0, "arena byte budget per conversion (0 = unlimited)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before re-checking after a change")
	cmd.Flags().BoolVar(&production, "production", false, "use the production telemetry profile")

	return cmd
}

// watchLoop re-checks documents as the filesystem reports changes, debouncing
// editor save bursts per file.
type watchLoop struct {
	conv     *snapshot.Converter
	tel      *telemetry.Telemetry
	logger   *telemetry.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func (w *watchLoop) run(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	w.timers = make(map[string]*time.Timer)

	// Add paths to watcher. Files are watched via their parent directory so
	// that atomic saves (rename + create) are still seen.
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		watchTarget := path
		if !info.IsDir() {
			watchTarget = filepath.Dir(path)
		}
		if err := watcher.Add(watchTarget); err != nil {
			return fmt.Errorf("failed to watch %s: %w", watchTarget, err)
		}
	}

	// Initial pass before waiting for changes; flush so its traces export
	// right away instead of waiting for the batcher.
	for _, path := range paths {
		w.checkPath(ctx, path)
	}
	if err := w.tel.Flush(ctx); err != nil {
		w.logger.WithError(err).Warn("failed to flush telemetry")
	}

	w.logger.Infof("watching %d paths", len(paths))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}

			w.logger.WithDocument(event.Name).Debugf("document changed (%s)", event.Op)
			w.tel.Events.Publish(telemetry.Event{
				Type:     telemetry.EventTypeDocumentChanged,
				Source:   "watch",
				Document: event.Name,
				Message:  "document changed on disk",
				Level:    telemetry.EventLevelInfo,
			})
			w.scheduleCheck(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

// scheduleCheck debounces repeated change events for the same file.
func (w *watchLoop) scheduleCheck(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.checkFile(ctx, path)
	})
}

// checkPath checks one file, or every .toml file under one directory.
func (w *watchLoop) checkPath(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.WithError(err).WithDocument(path).Warn("failed to stat path")
		return
	}
	if !info.IsDir() {
		w.checkFile(ctx, path)
		return
	}

	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".toml") {
			w.checkFile(ctx, p)
		}
		return nil
	})
	if err != nil {
		w.logger.WithError(err).WithDocument(path).Warn("failed to walk directory")
	}
}

func (w *watchLoop) checkFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.WithError(err).WithDocument(path).Warn("failed to read document")
		return
	}

	ctx = telemetry.WithDocumentName(ctx, path)
	res := w.conv.Convert(ctx, data)
	defer res.Close()

	if !res.OK() {
		w.logger.WithDocument(path).Errorf("invalid at %d:%d: %s",
			res.ErrLine(), res.ErrColumn(), res.ErrMessage())
		w.tel.Events.Publish(telemetry.Event{
			Type:     telemetry.EventTypeConversionFailed,
			Source:   "watch",
			Document: path,
			Message:  res.ErrMessage(),
			Level:    telemetry.EventLevelError,
			Data: map[string]interface{}{
				"line":   res.ErrLine(),
				"column": res.ErrColumn(),
			},
		})
		return
	}

	stats := res.ArenaStats()
	w.logger.WithDocument(path).Infof("document OK (%d top-level keys, %d arena bytes)",
		res.Root().Len(), stats.Used)
	w.tel.Events.Publish(telemetry.Event{
		Type:     telemetry.EventTypeConversionSucceeded,
		Source:   "watch",
		Document: path,
		Message:  "document converted",
		Level:    telemetry.EventLevelInfo,
	})
}
