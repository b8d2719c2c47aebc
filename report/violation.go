// Package report defines the violation vocabulary shared by the rule engine
// and provides collection and rendering of analysis reports.
package report

// RuleKind identifies a single conformance rule.
type RuleKind string

// Rule kinds emitted by the analyzer. The identifiers are part of the stable
// report line format and must not change between releases.
const (
	RuleParseError            RuleKind = "parse_error"
	RuleBaseModelInService    RuleKind = "basemodel_in_service"
	RuleNonModelInDomain      RuleKind = "non_model_in_domain"
	RuleWrongLayerClass       RuleKind = "wrong_layer_class"
	RuleTryExceptInDomain     RuleKind = "try_except_in_domain"
	RuleRaiseInDomain         RuleKind = "raise_in_domain"
	RuleAwaitInDomain         RuleKind = "await_in_domain"
	RuleImpureTimeInDomain    RuleKind = "impure_time_in_domain"
	RuleValidateNamingSmell   RuleKind = "validate_naming_smell"
	RuleBooleanFlagInDomain   RuleKind = "boolean_flag_in_domain"
	RulePrimitiveTypeInDomain RuleKind = "primitive_type_in_domain"
	RuleDefaultValueInDomain  RuleKind = "default_value_in_domain"
)

// Violation is a single rule match at a concrete source location.
// It is a value type: never merged or mutated after creation.
type Violation struct {
	// Path is the analyzed file path as given to the analyzer.
	Path string

	// Line is the 1-based source line of the offending node.
	Line int

	// Column is the 1-based source column of the offending node.
	Column int

	// Rule is the kind of the rule that matched.
	Rule RuleKind

	// Message is the rendered human-readable message.
	Message string
}

// Report is the deduplicated, deterministically ordered set of violations
// for one analysis run.
type Report struct {
	Violations []Violation
}

// Empty reports whether the report contains no violations.
func (r Report) Empty() bool {
	return len(r.Violations) == 0
}
