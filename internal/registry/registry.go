package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyTicker    = errors.New("ticker symbol cannot be empty")
	ErrAlreadyPresent = errors.New("ticker already in the list")
	ErrInvalidTicker  = errors.New("invalid ticker symbol")
)

// DefaultBaseline is the ticker list every session starts with.
var DefaultBaseline = []string{"AAPL", "GOOG", "MSFT", "NVDA"}

const maxTickerLen = 16

// Validator checks that a provider knows the symbol.
type Validator interface {
	Validate(ctx context.Context, ticker string) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, ticker string) bool

func (f ValidatorFunc) Validate(ctx context.Context, ticker string) bool { return f(ctx, ticker) }

// Registry is the baseline ticker list plus tickers added during a session.
// It is not safe for concurrent use; the owning session serializes access.
type Registry struct {
	baseline  []string
	added     []string
	preferred string
}

// New creates a registry over the given baseline. preferred is returned by
// Default when present; empty means "AAPL".
func New(baseline []string, preferred string) *Registry {
	if len(baseline) == 0 {
		baseline = DefaultBaseline
	}
	r := &Registry{preferred: Normalize(preferred)}
	if r.preferred == "" {
		r.preferred = "AAPL"
	}
	for _, t := range baseline {
		t = Normalize(t)
		if t != "" && !r.Contains(t) {
			r.baseline = append(r.baseline, t)
		}
	}
	return r
}

// Normalize trims whitespace and upper-cases a symbol.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// WellFormed reports whether t only uses characters seen in exchange symbols.
func WellFormed(t string) bool {
	if t == "" || utf8.RuneCountInString(t) > maxTickerLen {
		return false
	}
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '^', r == '=', r == '-':
		default:
			return false
		}
	}
	return true
}

// Add validates candidate and appends it to the session list. A rejected
// candidate leaves the registry unchanged.
func (r *Registry) Add(ctx context.Context, candidate string, v Validator) (string, error) {
	t := Normalize(candidate)
	if t == "" {
		return "", ErrEmptyTicker
	}
	if r.Contains(t) {
		return t, fmt.Errorf("%s: %w", t, ErrAlreadyPresent)
	}
	if !WellFormed(t) {
		return t, fmt.Errorf("%s: %w", t, ErrInvalidTicker)
	}
	if v != nil && !v.Validate(ctx, t) {
		return t, fmt.Errorf("%s: %w", t, ErrInvalidTicker)
	}
	r.added = append(r.added, t)
	return t, nil
}

// All returns baseline tickers followed by added ones, in insertion order.
func (r *Registry) All() []string {
	out := make([]string, 0, len(r.baseline)+len(r.added))
	out = append(out, r.baseline...)
	return append(out, r.added...)
}

// Added returns the tickers added during the session.
func (r *Registry) Added() []string {
	return append([]string(nil), r.added...)
}

// Contains reports whether t is in the baseline or the added list.
func (r *Registry) Contains(t string) bool {
	t = Normalize(t)
	for _, s := range r.baseline {
		if s == t {
			return true
		}
	}
	for _, s := range r.added {
		if s == t {
			return true
		}
	}
	return false
}

// Default returns the preferred ticker when listed, otherwise the first one.
func (r *Registry) Default() string {
	if r.Contains(r.preferred) {
		return r.preferred
	}
	if all := r.All(); len(all) > 0 {
		return all[0]
	}
	return ""
}

// Resolve returns t normalized when listed, otherwise Default.
func (r *Registry) Resolve(t string) string {
	if t = Normalize(t); t != "" && r.Contains(t) {
		return t
	}
	return r.Default()
}
