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

// identityDefinitions are checks on class definitions: whether a class of a
// given shape belongs in the layer its file lives in.
func identityDefinitions(cfg config.RulesConfig) []Definition {
	modelBases := toSet(cfg.ModelBases)
	enumBases := toSet(cfg.EnumBases)
	primitives := toSet(cfg.PrimitiveTypes)
	suffixes := append([]string(nil), cfg.WrongLayerSuffixes...)

	return []Definition{
		{
			Kind:     report.RuleBaseModelInService,
			Roles:    []classify.Role{classify.RoleService},
			Triggers: []string{"class_definition"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				bases, _ := baseClasses(n, tree)
				for _, base := range bases {
					if modelBases[lastSegment(base)] {
						return violationAt(n, report.RuleBaseModelInService,
							fmt.Sprintf("class %s inherits a model base inside the service layer - models belong under domain", className(n, tree)))
					}
				}
				return nil
			},
		},
		{
			Kind:     report.RuleNonModelInDomain,
			Roles:    []classify.Role{classify.RoleDomain},
			Triggers: []string{"class_definition"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				// Nested classes (pydantic's inner Config, for one) are
				// attributes of their model, not layer citizens.
				if scope.InsideClass() {
					return nil
				}
				bases, resolved := baseClasses(n, tree)
				if !resolved {
					// Ambiguous base expression - do not guess.
					return nil
				}
				for _, base := range bases {
					name := lastSegment(base)
					if modelBases[name] || enumBases[name] {
						return nil
					}
				}
				return violationAt(n, report.RuleNonModelInDomain,
					fmt.Sprintf("class %s under domain is neither a model nor an enum", className(n, tree)))
			},
		},
		{
			Kind:     report.RuleWrongLayerClass,
			Roles:    []classify.Role{classify.RoleDomain},
			Triggers: []string{"class_definition"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				name := className(n, tree)
				for _, suffix := range suffixes {
					if name != suffix && strings.HasSuffix(name, suffix) {
						return violationAt(n, report.RuleWrongLayerClass,
							fmt.Sprintf("class %s carries a %s suffix under domain - behavior classes belong in the service layer", name, suffix))
					}
				}
				return nil
			},
		},
		{
			Kind:     report.RuleBooleanFlagInDomain,
			Roles:    []classify.Role{classify.RoleDomain},
			Triggers: []string{"assignment"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				name, ok := annotatedAttribute(n, tree, scope)
				if !ok || !strings.HasPrefix(name, "is_") {
					return nil
				}
				return violationAt(n, report.RuleBooleanFlagInDomain,
					fmt.Sprintf("boolean flag %s - model the states explicitly instead", name))
			},
		},
		{
			Kind:     report.RulePrimitiveTypeInDomain,
			Roles:    []classify.Role{classify.RoleDomain},
			Triggers: []string{"assignment"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				name, ok := annotatedAttribute(n, tree, scope)
				if !ok {
					return nil
				}
				annotation := annotationIdentifier(n, tree)
				if !primitives[annotation] {
					return nil
				}
				return violationAt(n, report.RulePrimitiveTypeInDomain,
					fmt.Sprintf("primitive type %s on %s - wrap it in a value object", annotation, name))
			},
		},
		{
			Kind:     report.RuleDefaultValueInDomain,
			Roles:    []classify.Role{classify.RoleDomain},
			Triggers: []string{"assignment"},
			Check: func(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) *report.Violation {
				name, ok := annotatedAttribute(n, tree, scope)
				if !ok {
					return nil
				}
				value := n.ChildByFieldName("right")
				if value == nil || isSafeDefault(value, tree) {
					return nil
				}
				return violationAt(n, report.RuleDefaultValueInDomain,
					fmt.Sprintf("default value on %s - require explicit construction", name))
			},
		},
	}
}

// className returns the name of a class_definition node.
func className(n *sitter.Node, tree *pyast.Tree) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return tree.Text(name)
}

// baseClasses returns the textual base-class expressions of a class
// definition. resolved is false when any base is not a plain identifier or
// dotted attribute (a call, subscript, or starred expression), meaning the
// base list cannot be resolved with confidence.
func baseClasses(n *sitter.Node, tree *pyast.Tree) (bases []string, resolved bool) {
	resolved = true

	args := n.ChildByFieldName("superclasses")
	if args == nil {
		return nil, true
	}

	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "identifier", "attribute":
			bases = append(bases, tree.Text(arg))
		case "keyword_argument":
			// metaclass=... and friends are not bases.
		default:
			resolved = false
		}
	}
	return bases, resolved
}

// lastSegment returns the final dotted segment of a name
// (pydantic.BaseModel → BaseModel).
func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// annotatedAttribute returns the target name of an annotated class attribute
// (`name: Type` directly in a class body). ok is false for unannotated
// assignments, non-identifier targets, and assignments outside class bodies.
func annotatedAttribute(n *sitter.Node, tree *pyast.Tree, scope *pyast.ScopeContext) (string, bool) {
	if !scope.InsideClass() {
		return "", false
	}
	if n.ChildByFieldName("type") == nil {
		return "", false
	}
	left := n.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return "", false
	}
	return tree.Text(left), true
}

// annotationIdentifier returns the bare identifier an attribute annotation
// names, or "" when the annotation is anything richer (a subscript like
// Optional[str], an attribute, a union). Only bare names can be matched
// against the primitive set with confidence.
func annotationIdentifier(n *sitter.Node, tree *pyast.Tree) string {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	if typeNode.Type() == "type" && typeNode.NamedChildCount() > 0 {
		typeNode = typeNode.NamedChild(0)
	}
	if typeNode.Type() != "identifier" {
		return ""
	}
	return tree.Text(typeNode)
}

// isSafeDefault reports whether a default value expression is accepted on a
// domain attribute: None, or a Field(...) descriptor call.
func isSafeDefault(value *sitter.Node, tree *pyast.Tree) bool {
	switch value.Type() {
	case "none":
		return true
	case "call":
		fn := value.ChildByFieldName("function")
		return fn != nil && lastSegment(tree.Text(fn)) == "Field"
	}
	return false
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
