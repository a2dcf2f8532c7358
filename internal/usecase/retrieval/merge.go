package retrieval

import "paperpulse/internal/domain"

// Merge assembles the final ordered context (Stage 4): title matches
// first, then chunk or paper results, deduplicated by canonical ID with
// the first occurrence winning so title-match priority is preserved.
func Merge(sc *StageContext) {
	seen := make(map[string]bool)

	appendUnique := func(entries []domain.ContextEntry) {
		for _, e := range entries {
			if seen[e.PaperID] {
				continue
			}
			seen[e.PaperID] = true
			sc.Merged = append(sc.Merged, e)
		}
	}

	appendUnique(sc.TitleMatches)
	appendUnique(sc.ChunkEntries)
	appendUnique(sc.PaperEntries)
}
