// Package normalize reduces SQL statements to their structural shape.
//
// Literal values (quoted UUIDs, strings, numbers, booleans and IN-lists of
// literals) are replaced by a single "?" placeholder, so statements that differ
// only in the values they were executed with compare equal. This is a set of
// ordered text substitutions, not a parser: constructs that no rule matches are
// passed through unchanged.
package normalize

import (
	"regexp"
	"strings"
)

// Placeholder replaces every literal value.
const Placeholder = "?"

// Rules run most specific first: a quoted UUID must be consumed before the
// number rule can see its digit groups.
var (
	uuidLiteral   = regexp.MustCompile(`(?i)'[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}'`)
	stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)
	// The leading group stands in for a look-behind: digits that continue an
	// identifier, a parameter marker or a decimal are left alone.
	numberLiteral = regexp.MustCompile(`(^|[^\w$.?:])[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?\b`)
	boolLiteral   = regexp.MustCompile(`(?i)\b(?:TRUE|FALSE)\b`)
	inList        = regexp.MustCompile(`(?i)\b(IN)\s*\(\s*\?(?:\s*,\s*\?)*\s*\)`)

	dollarParam = regexp.MustCompile(`\$\d+`)
	formatParam = regexp.MustCompile(`%(?:\([^)]*\))?s`)
	namedParam  = regexp.MustCompile(`(^|[^:\w]):[A-Za-z_]\w*`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Options enables substitutions beyond the literal rules.
type Options struct {
	// CollapseWhitespace folds runs of whitespace into one space and trims the result.
	CollapseWhitespace bool `koanf:"collapse_whitespace" json:"collapse_whitespace"`
	// ParamMarkers rewrites driver parameter markers ($1, %s, %(name)s, :name) to the placeholder.
	ParamMarkers bool `koanf:"param_markers" json:"param_markers"`
}

// Normalizer applies the literal rules plus any enabled Options.
// A Normalizer holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New returns a Normalizer with the given options.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Options returns the options the normalizer was built with.
func (n *Normalizer) Options() Options {
	return n.opts
}

var defaultNormalizer = New(Options{})

// Normalize replaces literal values in sql with the placeholder.
// The result is deterministic and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(sql string) string {
	return defaultNormalizer.Normalize(sql)
}

// Normalize replaces literal values in sql with the placeholder.
func (n *Normalizer) Normalize(sql string) string {
	out := sql

	if n.opts.ParamMarkers {
		out = dollarParam.ReplaceAllString(out, Placeholder)
		out = formatParam.ReplaceAllString(out, Placeholder)
		out = namedParam.ReplaceAllString(out, "${1}"+Placeholder)
	}

	out = uuidLiteral.ReplaceAllString(out, Placeholder)
	out = stringLiteral.ReplaceAllString(out, Placeholder)
	out = numberLiteral.ReplaceAllString(out, "${1}"+Placeholder)
	out = boolLiteral.ReplaceAllString(out, Placeholder)
	out = inList.ReplaceAllString(out, "${1} ("+Placeholder+")")

	if n.opts.CollapseWhitespace {
		out = strings.TrimSpace(whitespace.ReplaceAllString(out, " "))
	}
	return out
}
