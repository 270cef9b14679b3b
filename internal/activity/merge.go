package activity

import "github.com/claude/fitlog/internal/models"

// Merge adds incoming entries whose id is not already in history, newest
// first. Ids repeated within incoming are added once. The input slice is
// not modified. It returns the merged history and the number of entries added.
func Merge(history, incoming []models.CardioEntry) ([]models.CardioEntry, int) {
	seen := make(map[string]struct{}, len(history)+len(incoming))
	for _, c := range history {
		seen[c.ID] = struct{}{}
	}

	var added []models.CardioEntry
	for _, c := range incoming {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		added = append(added, c)
	}
	if len(added) == 0 {
		return history, 0
	}

	// Each new entry is prepended in turn, so the last added ends up first.
	out := make([]models.CardioEntry, 0, len(added)+len(history))
	for i := len(added) - 1; i >= 0; i-- {
		out = append(out, added[i])
	}
	out = append(out, history...)
	return out, len(added)
}
