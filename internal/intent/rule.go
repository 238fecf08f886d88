package intent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrCaptureGroups is returned when a rule pattern does not have exactly
	// one capture group.
	ErrCaptureGroups = errors.New("pattern must have exactly one capture group")
	// ErrDuplicateLabel is returned when two rules share a label.
	ErrDuplicateLabel = errors.New("duplicate rule label")
)

// Resolver answers one intent given the parameter captured from the message.
// Returning store.ErrNotFound produces the standard not-found reply; any
// other error produces the generic apology.
type Resolver interface {
	Resolve(ctx context.Context, param string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, param string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, param string) (string, error) {
	return f(ctx, param)
}

// Rule binds a label and a case-insensitive pattern to a resolver.
type Rule struct {
	Label    string
	Pattern  *regexp.Regexp
	Resolver Resolver
}

// NewRule compiles expr case-insensitively and checks it captures exactly
// one parameter.
func NewRule(label, expr string, resolver Resolver) (Rule, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Rule{}, fmt.Errorf("rule label is empty")
	}
	if resolver == nil {
		return Rule{}, fmt.Errorf("rule %q: nil resolver", label)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", label, err)
	}
	if re.NumSubexp() != 1 {
		return Rule{}, fmt.Errorf("rule %q: %w (has %d)", label, ErrCaptureGroups, re.NumSubexp())
	}
	return Rule{Label: label, Pattern: re, Resolver: resolver}, nil
}

// MustRule is NewRule for rule tables fixed at compile time.
func MustRule(label, expr string, resolver Resolver) Rule {
	r, err := NewRule(label, expr, resolver)
	if err != nil {
		panic(err)
	}
	return r
}

// match returns the trimmed capture when the rule's pattern occurs in text.
func (r Rule) match(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
