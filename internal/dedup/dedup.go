// Package dedup collapses the candidates of one scan to one per identity.
package dedup

import (
	"unicode/utf8"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

// Deduplicate keeps, for every identity key, the candidate with the longest
// description; the earliest one wins ties. Output follows the order in which
// identities first appear.
func Deduplicate(candidates []domain.Candidate) []domain.Candidate {
	index := make(map[string]int, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := c.Key
		if key == "" {
			key = domain.IdentityKey(c.Title)
			c.Key = key
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, c)
			continue
		}
		if utf8.RuneCountInString(c.Description) > utf8.RuneCountInString(out[i].Description) {
			out[i] = c
		}
	}

	return out
}
