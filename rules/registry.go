// Package rules defines the conformance rule table: a fixed set of checks
// grouped into identity, flow, and naming families. Each check is a pure
// function of (node, scope) that either produces a violation or stays silent.
// When a check cannot determine applicability it returns nil - false
// negatives are preferred over false positives.
package rules

import (
	"log/slog"
	"slices"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/mirror/classify"
	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/pyast"
	"github.com/c360studio/mirror/report"
)

// CheckFunc evaluates one rule against one node. A nil result means the rule
// does not fire. Checks must not retain the node or scope.
type CheckFunc func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation

// Definition describes one rule: its identifier, the roles it applies to
// (empty = any), the node kinds that trigger it, and its check.
// Definitions are built once at startup and never mutated.
type Definition struct {
	Kind     report.RuleKind
	Roles    []classify.Role
	Triggers []string
	Check    CheckFunc
}

// appliesTo reports whether the rule is in scope for a file role.
func (d *Definition) appliesTo(role classify.Role) bool {
	return len(d.Roles) == 0 || slices.Contains(d.Roles, role)
}

// Registry is the static rule table. Built once per process, read-only
// afterwards; safe for concurrent use by parallel file workers.
type Registry struct {
	defs      []Definition
	byTrigger map[string][]int
	logger    *slog.Logger
}

// NewRegistry builds the rule table from configuration. Rules listed in
// cfg.Disabled are left out entirely.
func NewRegistry(cfg config.RulesConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	disabled := make(map[report.RuleKind]bool, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		disabled[report.RuleKind(id)] = true
	}

	all := buildDefinitions(cfg)

	r := &Registry{
		byTrigger: make(map[string][]int),
		logger:    logger,
	}
	for _, def := range all {
		if disabled[def.Kind] {
			continue
		}
		idx := len(r.defs)
		r.defs = append(r.defs, def)
		for _, trigger := range def.Triggers {
			r.byTrigger[trigger] = append(r.byTrigger[trigger], idx)
		}
	}

	return r
}

// Definitions returns the active rule definitions.
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Eval runs every rule whose trigger matches the node kind and whose role
// filter matches the file role. All matching rules run; several may fire on
// the same node. A panicking check is isolated per (rule, node): the engine
// logs a diagnostic and treats that check as not firing.
func (r *Registry) Eval(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) []report.Violation {
	indices, ok := r.byTrigger[n.Type()]
	if !ok {
		return nil
	}

	var violations []report.Violation
	for _, idx := range indices {
		def := &r.defs[idx]
		if !def.appliesTo(scope.Role()) {
			continue
		}
		if v := r.evalOne(def, n, tree, scope); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}

// evalOne runs a single check with panic isolation.
func (r *Registry) evalOne(def *Definition, n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) (v *report.Violation) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("rule check failed on node, skipping",
				slog.String("rule", string(def.Kind)),
				slog.String("node", n.Type()),
				slog.Int("line", int(n.StartPoint().Row)+1),
				slog.Any("panic", rec))
			v = nil
		}
	}()
	return def.Check(n, tree, scope)
}

// buildDefinitions assembles the three rule families.
func buildDefinitions(cfg config.RulesConfig) []Definition {
	var defs []Definition
	defs = append(defs, identityDefinitions(cfg)...)
	defs = append(defs, flowDefinitions(cfg)...)
	defs = append(defs, namingDefinitions(cfg)...)
	return defs
}

// violationAt builds a violation anchored at a node's start position.
// The file path is filled in by the analyzer.
func violationAt(n *sitter.Node, kind report.RuleKind, message string) *report.Violation {
	return &report.Violation{
		Line:    int(n.StartPoint().Row) + 1,
		Column:  int(n.StartPoint().Column) + 1,
		Rule:    kind,
		Message: message,
	}
}
