// Package analyzer runs the per-file conformance pipeline
// (classify → parse → walk → collect) and fans it out across multiple files.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/mirror/classify"
	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/pyast"
	"github.com/c360studio/mirror/report"
	"github.com/c360studio/mirror/rules"
)

// Analyzer applies the rule registry to source files. It holds no mutable
// state between runs; one Analyzer serves any number of Analyze calls.
type Analyzer struct {
	classifier *classify.Classifier
	registry   *rules.Registry
	skipDirs   map[string]bool
	workers    int
	logger     *slog.Logger
}

// New builds an analyzer from configuration. The rule registry is constructed
// once here and read-only afterwards.
func New(cfg *config.Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	var markers map[string]classify.Role
	if len(cfg.Classify.Markers) > 0 {
		markers = make(map[string]classify.Role, len(cfg.Classify.Markers))
		for segment, role := range cfg.Classify.Markers {
			markers[segment] = classify.ParseRole(role)
		}
	}
	overrides := make([]classify.Override, 0, len(cfg.Classify.Overrides))
	for _, o := range cfg.Classify.Overrides {
		overrides = append(overrides, classify.Override{
			Pattern: o.Pattern,
			Role:    classify.ParseRole(o.Role),
		})
	}

	workers := cfg.Analyzer.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	skipDirs := make(map[string]bool, len(cfg.Analyzer.SkipDirs))
	for _, dir := range cfg.Analyzer.SkipDirs {
		skipDirs[dir] = true
	}

	return &Analyzer{
		classifier: classify.New(markers, overrides),
		registry:   rules.NewRegistry(cfg.Rules, logger),
		skipDirs:   skipDirs,
		workers:    workers,
		logger:     logger,
	}
}

// AnalyzeFile runs the full pipeline on a single file. A syntax error yields
// exactly one parse_error violation and skips rule evaluation; an unreadable
// file is an error the caller treats as fatal.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) ([]report.Violation, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return a.AnalyzeSource(ctx, path, src)
}

// AnalyzeSource runs the pipeline on in-memory source, attributed to path.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, src []byte) ([]report.Violation, error) {
	role := a.classifier.Classify(path)

	// Parsers are not safe for concurrent use; each analysis gets its own.
	tree, err := pyast.NewParser().Parse(ctx, src)
	if err != nil {
		var parseErr *pyast.ParseError
		if !errors.As(err, &parseErr) {
			// Cancellation or another infrastructure failure, not a
			// statement about the source.
			return nil, err
		}
		a.logger.Debug("parse failed",
			slog.String("path", path),
			slog.Int("line", parseErr.Line))
		return []report.Violation{{
			Path:    path,
			Line:    parseErr.Line,
			Column:  1,
			Rule:    report.RuleParseError,
			Message: parseErr.Message,
		}}, nil
	}
	defer tree.Close()

	var violations []report.Violation
	pyast.Walk(tree, role, func(n *sitter.Node, scope *pyast.ScopeContext) {
		for _, v := range a.registry.Eval(n, tree, scope) {
			v.Path = path
			violations = append(violations, v)
		}
	})

	return violations, nil
}

// Analyze expands the given paths (files, directories, globs) and analyzes
// every matched file across a bounded worker pool. Files share no mutable
// state; the final Collect imposes the deterministic ordering. File-local
// parse failures become violations; I/O failures abort the run.
func (a *Analyzer) Analyze(ctx context.Context, paths []string) (report.Report, error) {
	files, err := a.ExpandPaths(paths)
	if err != nil {
		return report.Report{}, err
	}

	results := make([][]report.Violation, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, file := range files {
		g.Go(func() error {
			violations, err := a.AnalyzeFile(gctx, file)
			if err != nil {
				return err
			}
			results[i] = violations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.Report{}, err
	}

	var all []report.Violation
	for _, violations := range results {
		all = append(all, violations...)
	}

	a.logger.Debug("analysis complete",
		slog.Int("files", len(files)),
		slog.Int("violations", len(all)))

	return report.Collect(all), nil
}
