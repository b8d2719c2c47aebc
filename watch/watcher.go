// Package watch runs the analyzer as a long-lived service: every save of a
// Python file triggers a re-scan and an atomic rewrite of the report file,
// and shutdown clears the report. This is the in-process equivalent of the
// editor hook lifecycle (file-save → run, session-end → clear).
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/c360studio/mirror/analyzer"
	"github.com/c360studio/mirror/report"
)

// Config configures the watch service.
type Config struct {
	// Roots are the directories to watch and analyze.
	Roots []string

	// ReportPath is the report file rewritten after every pass.
	ReportPath string

	// Debounce is how long to wait for more changes before re-analyzing.
	Debounce time.Duration

	// Logger for service events.
	Logger *slog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
}

// Service watches a source tree and keeps the report file current.
type Service struct {
	config   Config
	analyzer *analyzer.Analyzer
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// session identifies one watch run in logs.
	session string

	// Debouncing: collect changes before processing.
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// NewService creates a watch service around an analyzer.
func NewService(a *analyzer.Analyzer, config Config) (*Service, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce == 0 {
		config.Debounce = 200 * time.Millisecond
	}

	return &Service{
		config:   config,
		analyzer: a,
		watcher:  fsw,
		logger:   logger,
		session:  uuid.New().String(),
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Run watches until ctx is canceled. It performs one full pass up front so
// the report reflects the current tree, then re-scans on every save. On
// shutdown the report file is cleared; a torn report is impossible because
// every write commits atomically.
func (s *Service) Run(ctx context.Context) error {
	defer s.watcher.Close()

	for _, root := range s.config.Roots {
		if err := s.addWatchesRecursive(root); err != nil {
			return err
		}
	}

	s.logger.Info("watch service started",
		slog.String("session", s.session),
		slog.Any("roots", s.config.Roots),
		slog.Duration("debounce", s.config.Debounce))

	if err := s.scan(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch session ending, clearing report",
				slog.String("session", s.session))
			if err := report.ClearFile(s.config.ReportPath); err != nil {
				return err
			}
			return nil

		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handleFSEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if err := s.flushPending(ctx); err != nil {
				return err
			}
		}
	}
}

// scan runs one full analysis pass and rewrites the report.
func (s *Service) scan(ctx context.Context) error {
	start := time.Now()

	result, err := s.analyzer.Analyze(ctx, s.config.Roots)
	if err != nil {
		return err
	}

	if err := report.WriteFile(result, s.config.ReportPath); err != nil {
		return err
	}

	if m := s.config.Metrics; m != nil {
		m.Scans.Inc()
		m.ReportViolations.Set(float64(len(result.Violations)))
		for _, v := range result.Violations {
			if v.Rule == report.RuleParseError {
				m.ParseErrors.Inc()
			}
		}
	}

	s.logger.Debug("scan complete",
		slog.String("session", s.session),
		slog.Int("violations", len(result.Violations)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// addWatchesRecursive adds watches to all directories under root.
func (s *Service) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if path != root && (strings.HasPrefix(base, ".") || base == "vendor" || base == "__pycache__") {
			return filepath.SkipDir
		}

		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	})
}

// handleFSEvent records a single fsnotify event for the next flush.
func (s *Service) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !strings.HasSuffix(path, ".py") && !strings.HasSuffix(path, ".pyw") {
		// Directory creation needs a new watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				s.handleNewDirectory(path)
			}
		}
		return
	}

	s.pendingMu.Lock()
	s.pending[path] = event.Op
	s.pendingMu.Unlock()

	s.logger.Debug("file change detected",
		slog.String("path", path),
		slog.String("op", event.Op.String()))
}

// handleNewDirectory adds a watch to a newly created directory.
func (s *Service) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || base == "vendor" || base == "__pycache__" {
		return
	}

	if err := s.watcher.Add(path); err != nil {
		s.logger.Warn("failed to watch new directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// flushPending re-analyzes when changes accumulated since the last tick.
func (s *Service) flushPending(ctx context.Context) error {
	s.pendingMu.Lock()
	changed := len(s.pending)
	s.pending = make(map[string]fsnotify.Op)
	s.pendingMu.Unlock()

	if changed == 0 {
		return nil
	}

	if m := s.config.Metrics; m != nil {
		m.FilesAnalyzed.Add(float64(changed))
	}
	return s.scan(ctx)
}
