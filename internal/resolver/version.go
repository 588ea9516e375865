package resolver

import (
	"strconv"
	"strings"
)

// Satisfies reports whether version meets spec. Specs are dispatched on their
// prefix: "latest", "*" and the empty spec accept anything, the comparison
// operators use dotted-numeric ordering, caret pins the major component,
// tilde pins major and minor, and anything else is an exact match.
func Satisfies(version, spec string) bool {
	switch spec {
	case "", "latest", "*":
		return true
	}
	switch {
	case strings.HasPrefix(spec, ">="):
		return Compare(version, spec[2:]) >= 0
	case strings.HasPrefix(spec, "<="):
		return Compare(version, spec[2:]) <= 0
	case strings.HasPrefix(spec, ">"):
		return Compare(version, spec[1:]) > 0
	case strings.HasPrefix(spec, "<"):
		return Compare(version, spec[1:]) < 0
	case strings.HasPrefix(spec, "^"):
		return sharesPrefix(version, spec[1:], 1)
	case strings.HasPrefix(spec, "~"):
		return sharesPrefix(version, spec[1:], 2)
	}
	return version == spec
}

// Compare orders two dotted-numeric versions. Prerelease and build metadata
// are ignored; when the field counts differ only the overlapping positions
// are compared, so "1.2" and "1.2.9" order equal.
func Compare(a, b string) int {
	fa, fb := fields(a), fields(b)
	n := len(fa)
	if len(fb) < n {
		n = len(fb)
	}
	for i := 0; i < n; i++ {
		if fa[i] != fb[i] {
			if fa[i] < fb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// sharesPrefix reports whether the first n dotted fields of version and spec
// are equal.
func sharesPrefix(version, spec string, n int) bool {
	fv, fs := fields(version), fields(spec)
	if len(fv) < n || len(fs) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if fv[i] != fs[i] {
			return false
		}
	}
	return true
}

// fields strips prerelease and build metadata and parses the remaining
// dotted components as integers. Unparseable components become 0.
func fields(version string) []int {
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		version = version[:i]
	}
	parts := strings.Split(version, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}
