package vault

import "slices"

// Match is a search hit enriched with cached note metadata.
type Match struct {
	Path   string   `json:"path"`
	Title  string   `json:"title"`
	Tags   []string `json:"tags,omitempty"`
	Score  float64  `json:"score"`
	Fields []string `json:"fields,omitempty"`
}

// SetDefaultSearchLimit overrides the result cap used when Search is
// called with a non-positive limit.
func (v *Vault) SetDefaultSearchLimit(n int) {
	if n <= 0 {
		return
	}
	v.mu.Lock()
	v.defaultLimit = n
	v.mu.Unlock()
}

// Search runs a ranked query over the index. When tags are given, hits
// are restricted to notes carrying at least one of them. The index is
// rebuilt first if any mutation left it stale.
func (v *Vault) Search(query string, tags []string, limit int) ([]Match, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if limit <= 0 {
		limit = v.defaultLimit
	}

	if v.searchStale {
		v.refreshSearchLocked()
	}

	// Over-fetch when filtering by tag so the post-filter can still
	// fill the limit.
	fetch := limit
	if len(tags) > 0 {
		fetch = limit * 5
	}
	hits, err := v.engine.Query(query, fetch)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, limit)
	for _, h := range hits {
		n, ok := v.notes[h.Path]
		if !ok {
			continue
		}
		if len(tags) > 0 && !anyTag(n.Tags, tags) {
			continue
		}
		out = append(out, Match{
			Path:   n.Path,
			Title:  n.Title,
			Tags:   slices.Clone(n.Tags),
			Score:  h.Score,
			Fields: h.Fields,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// anyTag reports whether have contains at least one of want.
func anyTag(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
