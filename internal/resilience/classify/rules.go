package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vietddude/invoker/internal/core/domain"
)

// Rule is a single false-positive signature.
type Rule interface {
	Name() string
	Match(n domain.NormalizedError) bool
}

// PatternRule matches the normalized message against a case-insensitive
// regular expression.
type PatternRule struct {
	name string
	re   *regexp.Regexp
}

// NewPatternRule compiles pattern case-insensitively.
func NewPatternRule(name, pattern string) (*PatternRule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return &PatternRule{name: name, re: re}, nil
}

// MustPatternRule is NewPatternRule that panics on a bad pattern.
func MustPatternRule(name, pattern string) *PatternRule {
	r, err := NewPatternRule(name, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *PatternRule) Name() string { return r.name }

func (r *PatternRule) Match(n domain.NormalizedError) bool {
	return r.re.MatchString(n.Message)
}

// CodeRule matches the normalized code, ignoring case.
type CodeRule struct {
	name  string
	codes map[string]struct{}
}

// NewCodeRule creates a rule matching any of codes.
func NewCodeRule(name string, codes ...string) *CodeRule {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			set[strings.ToUpper(c)] = struct{}{}
		}
	}
	return &CodeRule{name: name, codes: set}
}

func (r *CodeRule) Name() string { return r.name }

func (r *CodeRule) Match(n domain.NormalizedError) bool {
	if n.Code == "" {
		return false
	}
	_, ok := r.codes[strings.ToUpper(n.Code)]
	return ok
}

type funcRule struct {
	name string
	fn   func(domain.NormalizedError) bool
}

// Func adapts a predicate into a Rule.
func Func(name string, fn func(domain.NormalizedError) bool) Rule {
	return funcRule{name: name, fn: fn}
}

func (r funcRule) Name() string                        { return r.name }
func (r funcRule) Match(n domain.NormalizedError) bool { return r.fn(n) }

// defaultPatterns are the known spurious limit phrasings reported by the
// remote-function backend.
var defaultPatterns = []struct{ name, pattern string }{
	{"limit-exceeded", `\blimits?\s+(has\s+been\s+|have\s+been\s+|was\s+|were\s+)?exceeded\b`},
	{"exceeded-limit", `\bexceeded\s+(the\s+|your\s+|its\s+)?([\w-]+\s+){0,2}limits?\b`},
	{"quota-exceeded", `\bquotas?\s+(has\s+been\s+|was\s+)?exceeded\b`},
	{"exceeded-quota", `\bexceeded\s+(the\s+|your\s+|its\s+)?([\w-]+\s+){0,2}quotas?\b`},
	{"invocation-limit", `\binvocations?\s+(limit|quota|cap)\b`},
	{"too-many-invocations", `\btoo\s+many\s+(requests|invocations|function\s+calls)\b`},
	{"worker-limit", `\bworker[_\s-]?limit\b`},
	{"rate-limit", `\brate[\s_-]?limit(ed|s)?\b`},
}

// DefaultRules returns the built-in signature set.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(defaultPatterns))
	for _, p := range defaultPatterns {
		rules = append(rules, MustPatternRule(p.name, p.pattern))
	}
	return rules
}
