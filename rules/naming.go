package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/pyast"
	"github.com/c360studio/mirror/report"
)

// namingDefinitions flag function names that smell of scattered validation,
// independent of the file's role.
func namingDefinitions(cfg config.RulesConfig) []Definition {
	prefixes := append([]string(nil), cfg.NamingPrefixes...)

	return []Definition{
		{
			Kind:     report.RuleValidateNamingSmell,
			Triggers: []string{"function_definition"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				name := n.ChildByFieldName("name")
				if name == nil {
					return nil
				}
				text := tree.Text(name)
				for _, prefix := range prefixes {
					if strings.HasPrefix(text, prefix) {
						return violationAt(n, report.RuleValidateNamingSmell,
							fmt.Sprintf("function %s - fold validation into construction", text))
					}
				}
				return nil
			},
		},
	}
}
