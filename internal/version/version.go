// Package version compares release identifiers such as "v1.4.2".
//
// Parsing never fails: one leading "v" or "V" is dropped, the remainder is
// split on dots and every segment that is not a plain non-negative integer
// counts as zero. A segment too large for int64 is capped at math.MaxInt64,
// so it still outranks any smaller number. Identifiers of different length
// compare as if the shorter one were padded with zeros, so "1.2" and "1.2.0"
// are equal.
package version

import (
	"math"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Identifier is a parsed, immutable version identifier.
type Identifier struct {
	fields []int64
}

// Parse turns s into an Identifier. It accepts anything.
func Parse(s string) Identifier {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == 'v' || s[0] == 'V') {
		s = s[1:]
	}

	if s == "" {
		return Identifier{fields: []int64{0}}
	}

	parts := strings.Split(s, ".")
	fields := make([]int64, len(parts))
	for i, p := range parts {
		fields[i] = parseField(p)
	}
	return Identifier{fields: fields}
}

func parseField(p string) int64 {
	if p == "" {
		return 0
	}
	for _, ch := range p {
		if ch < '0' || ch > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(p, 10, 64)
	if err != nil {
		// digits only, so the parse can only fail on range
		return math.MaxInt64
	}
	return n
}

// String returns the normalized dotted form without a prefix.
func (id Identifier) String() string {
	if len(id.fields) == 0 {
		return "0"
	}
	parts := make([]string, len(id.fields))
	for i, f := range id.fields {
		parts[i] = strconv.FormatInt(f, 10)
	}
	return strings.Join(parts, ".")
}

// Compare compares two identifiers.
// Returns:
//
//	-1 if id < other
//	 0 if id == other
//	 1 if id > other
func (id Identifier) Compare(other Identifier) int {
	return id.semantic().Compare(other.semantic())
}

// GreaterThan returns true if id > other.
func (id Identifier) GreaterThan(other Identifier) bool {
	return id.Compare(other) > 0
}

// semantic converts the normalized form into a go-version value. The
// normalized form only ever holds digits and dots, which go-version always
// accepts.
func (id Identifier) semantic() *goversion.Version {
	v, err := goversion.NewVersion(id.String())
	if err != nil {
		return goversion.Must(goversion.NewVersion("0"))
	}
	return v
}

// IsNewer reports whether a is strictly newer than b.
func IsNewer(a, b string) bool {
	return Parse(a).GreaterThan(Parse(b))
}
