package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/mirror/classify"
	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/pyast"
	"github.com/c360studio/mirror/report"
)

// flowDefinitions are control-flow checks scoped to the domain role: domain
// logic stays free of exception handling, asynchrony, and wall-clock reads.
func flowDefinitions(cfg config.RulesConfig) []Definition {
	domainOnly := []classify.Role{classify.RoleDomain}
	accessors := append([]string(nil), cfg.TimeAccessors...)

	return []Definition{
		{
			Kind:     report.RuleTryExceptInDomain,
			Roles:    domainOnly,
			Triggers: []string{"try_statement"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				return violationAt(n, report.RuleTryExceptInDomain,
					"try/except in domain logic - return result values instead")
			},
		},
		{
			Kind:     report.RuleRaiseInDomain,
			Roles:    domainOnly,
			Triggers: []string{"raise_statement"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				return violationAt(n, report.RuleRaiseInDomain,
					"raise in domain logic - return failure values instead")
			},
		},
		{
			Kind:     report.RuleAwaitInDomain,
			Roles:    domainOnly,
			Triggers: []string{"await"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				return violationAt(n, report.RuleAwaitInDomain,
					"await in domain logic - async belongs at the shell edge")
			},
		},
		{
			Kind:     report.RuleImpureTimeInDomain,
			Roles:    domainOnly,
			Triggers: []string{"call"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				callee := calleeName(n, tree)
				if callee == "" {
					return nil
				}
				if accessor := matchAccessor(callee, accessors); accessor != "" {
					return violationAt(n, report.RuleImpureTimeInDomain,
						fmt.Sprintf("call to %s reads the current time - pass time in as data", accessor))
				}
				return nil
			},
		},
	}
}

// calleeName returns the dotted callee expression of a call node, or ""
// when the callee is not a name (a lambda, subscript, or another call).
func calleeName(n *sitter.Node, tree *pyast.Tree) string {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier", "attribute":
		return tree.Text(fn)
	}
	return ""
}

// matchAccessor reports which configured time accessor a callee resolves to.
// A callee matches when it equals the accessor or ends with "." + accessor
// (datetime.datetime.now matches datetime.now). Bare names never match a
// dotted accessor - an unqualified now() cannot be resolved with confidence.
func matchAccessor(callee string, accessors []string) string {
	for _, accessor := range accessors {
		if callee == accessor || strings.HasSuffix(callee, "."+accessor) {
			return accessor
		}
	}
	return ""
}
