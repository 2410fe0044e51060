// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-buddy/pkg/types"
)

var (
	betweenPattern   = regexp.MustCompile(`\bbetween\s+(\d{4})\s+(?:and|to|-)\s+(\d{4})\b`)
	lastYearsPattern = regexp.MustCompile(`\b(?:last|past)\s+(\d{1,2})\s+years?\b`)
	afterPattern     = regexp.MustCompile(`\b(?:after|since)\s+(\d{4})\b`)
	beforePattern    = regexp.MustCompile(`\bbefore\s+(\d{4})\b`)
	recentPattern    = regexp.MustCompile(`\b(?:recent|latest)`)
	decadePattern    = regexp.MustCompile(`\b(?:last|past)\s+decade\b`)
)

// Relative windows and citation floors for recognized phrases.
const (
	recentWindow     = 3
	decadeWindow     = 10
	highlyCitedFloor = 100
	influentialFloor = 50
)

// ParseFilterHints detects filter phrases in a natural-language query such
// as "recent", "after 2020" or "highly cited". Each recognized phrase sets
// FilterSpec fields; everything else is ignored.
//
// Year phrases are checked in order: an explicit range, then "recent" or
// "latest", then "last N years", then "after"/"since". "before" sets the
// upper bound unless a range already did.
func ParseFilterHints(query string, now time.Time) types.FilterSpec {
	q := strings.ToLower(query)
	year := now.Year()
	var spec types.FilterSpec

	if m := betweenPattern.FindStringSubmatch(q); m != nil {
		lo, hi := atoi(m[1]), atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		spec.MinYear, spec.MaxYear = types.IntPtr(lo), types.IntPtr(hi)
	} else {
		switch {
		case recentPattern.MatchString(q):
			spec.MinYear = types.IntPtr(year - recentWindow)
		case lastYearsPattern.MatchString(q):
			n := atoi(lastYearsPattern.FindStringSubmatch(q)[1])
			spec.MinYear = types.IntPtr(year - n)
		case decadePattern.MatchString(q):
			spec.MinYear = types.IntPtr(year - decadeWindow)
		case afterPattern.MatchString(q):
			spec.MinYear = types.IntPtr(atoi(afterPattern.FindStringSubmatch(q)[1]))
		}
		if m := beforePattern.FindStringSubmatch(q); m != nil {
			spec.MaxYear = types.IntPtr(atoi(m[1]))
		}
	}

	switch {
	case strings.Contains(q, "highly cited"):
		spec.MinCitations = types.IntPtr(highlyCitedFloor)
	case strings.Contains(q, "influential"):
		spec.MinCitations = types.IntPtr(influentialFloor)
	}
	return spec
}

// atoi is only called on regexp digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
