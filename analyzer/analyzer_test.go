package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/report"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(config.DefaultConfig(), nil)
}

// writeTree creates files under a temp root and returns the root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestAnalyze_CleanFileEmptyReport(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/order/entity.py": `class Order(BaseModel):
    amount: Money

    @property
    def doubled(self):
        return self.amount * 2
`,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !r.Empty() {
		t.Errorf("expected empty report, got %v", r.Violations)
	}
}

func TestAnalyze_TryExceptInDomain(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/order/entity.py": `try:
    import fast_json
except ImportError:
    fast_json = None
`,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(r.Violations) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(r.Violations), r.Violations)
	}
	v := r.Violations[0]
	if v.Rule != report.RuleTryExceptInDomain {
		t.Errorf("rule = %q, want %q", v.Rule, report.RuleTryExceptInDomain)
	}
	if v.Line != 1 {
		t.Errorf("line = %d, want 1", v.Line)
	}
	if filepath.Base(v.Path) != "entity.py" {
		t.Errorf("path = %q, want entity.py", v.Path)
	}
}

func TestAnalyze_BaseModelInService(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/service/foo.py": `class FooPayload(BaseModel):
    name: str
`,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(r.Violations) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(r.Violations), r.Violations)
	}
	if r.Violations[0].Rule != report.RuleBaseModelInService {
		t.Errorf("rule = %q, want %q", r.Violations[0].Rule, report.RuleBaseModelInService)
	}
	if r.Violations[0].Line != 1 {
		t.Errorf("line = %d, want the class-definition line", r.Violations[0].Line)
	}
}

func TestAnalyze_ValidateNamingSmellAnywhere(t *testing.T) {
	root := writeTree(t, map[string]string{
		"tests/helpers.py": `def validate_email(value):
    return "@" in value
`,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(r.Violations) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(r.Violations), r.Violations)
	}
	if r.Violations[0].Rule != report.RuleValidateNamingSmell {
		t.Errorf("rule = %q, want %q", r.Violations[0].Rule, report.RuleValidateNamingSmell)
	}
}

func TestAnalyze_ParseErrorIsOnlyFinding(t *testing.T) {
	root := writeTree(t, map[string]string{
		// The raise would fire under domain if rules ran.
		"src/domain/broken.py": "def broken(:\n    raise ValueError()\n",
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(r.Violations) != 1 {
		t.Fatalf("got %d violations, want exactly 1: %v", len(r.Violations), r.Violations)
	}
	if r.Violations[0].Rule != report.RuleParseError {
		t.Errorf("rule = %q, want %q", r.Violations[0].Rule, report.RuleParseError)
	}
}

func TestAnalyze_ParseErrorDoesNotCascade(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/broken.py": "def broken(:\n",
		"src/domain/order.py": `def f():
    raise ValueError()
`,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var sawParseError, sawRaise bool
	for _, v := range r.Violations {
		switch v.Rule {
		case report.RuleParseError:
			sawParseError = true
		case report.RuleRaiseInDomain:
			sawRaise = true
		}
	}
	if !sawParseError || !sawRaise {
		t.Errorf("expected both parse_error and raise_in_domain, got %v", r.Violations)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/a.py": "raise ValueError()\n",
		"src/domain/b.py": `class OrderManager:
    pass
`,
		"src/service/c.py": `class Payload(BaseModel):
    x: int
`,
	})

	a := newTestAnalyzer(t)
	first, err := a.Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := a.Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze again: %v", err)
	}

	if report.Render(first) != report.Render(second) {
		t.Error("repeated analysis of unchanged content rendered differently")
	}
}

func TestAnalyze_OtherRoleSuppressesDomainRules(t *testing.T) {
	code := `try:
    x = 1
except ValueError:
    raise
`
	root := writeTree(t, map[string]string{
		"tests/fixtures/x.py": code,
	})

	r, err := newTestAnalyzer(t).Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !r.Empty() {
		t.Errorf("domain-scoped rules fired outside domain: %v", r.Violations)
	}
}

func TestAnalyze_CancellationIsFatalNotParseError(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/entity.py": "x = 1\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := newTestAnalyzer(t).Analyze(ctx, []string{root})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// An interrupted run reports nothing, least of all parse_error lines.
	if len(r.Violations) != 0 {
		t.Errorf("canceled run produced violations: %v", r.Violations)
	}
}

func TestAnalyze_UnreadableInputIsFatal(t *testing.T) {
	_, err := newTestAnalyzer(t).Analyze(context.Background(), []string{"/definitely/not/there.py"})
	if err == nil {
		t.Fatal("expected an error for a missing input path")
	}
}

func TestAnalyzeSource_PathAttribution(t *testing.T) {
	violations, err := newTestAnalyzer(t).AnalyzeSource(context.Background(),
		"src/domain/x.py", []byte("raise ValueError()\n"))
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	if violations[0].Path != "src/domain/x.py" {
		t.Errorf("path = %q", violations[0].Path)
	}
}

func TestAnalyze_ManyFilesConcurrently(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 40; i++ {
		files[filepath.Join("src/domain", string(rune('a'+i%26))+"dir", "mod"+string(rune('a'+i%26))+".py")] =
			"raise ValueError()\n"
	}
	root := writeTree(t, files)

	cfg := config.DefaultConfig()
	cfg.Analyzer.Workers = 4
	a := New(cfg, nil)

	r, err := a.Analyze(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(r.Violations) != len(files) {
		t.Errorf("got %d violations, want %d", len(r.Violations), len(files))
	}
}
