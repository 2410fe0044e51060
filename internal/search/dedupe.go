// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"
	"unicode"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// Dedupe removes records whose normalized titles repeat, keeping the first
// occurrence and the input order. Records whose title normalizes to the
// empty string are dropped. removed counts both kinds of discard.
//
// The key is title-only. Two records for the same paper with different
// titles survive, and later duplicates are discarded even when they come
// from a richer source.
func Dedupe(records []types.PaperRecord) (deduped []types.PaperRecord, removed int) {
	seen := make(map[string]struct{}, len(records))
	deduped = make([]types.PaperRecord, 0, len(records))

	for _, r := range records {
		key := TitleKey(r.Title)
		if key == "" {
			removed++
			continue
		}
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// TitleKey returns a lowercased, punctuation-stripped version of the title
// with whitespace collapsed to single spaces.
func TitleKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
