package vault

import (
	"math"
	"slices"
	"strings"
)

// LinkAnalysis summarizes the state of the link graph.
type LinkAnalysis struct {
	TotalLinks  int           `json:"total_links"`
	BrokenLinks []string      `json:"broken_links"` // "<path>: <raw reference>"
	Orphans     []string      `json:"orphans"`      // zero edges in both directions
	Central     []CentralNote `json:"central"`      // top 10 by total degree
}

// CentralNote is one entry in the centrality ranking.
type CentralNote struct {
	Path         string `json:"path"`
	ForwardLinks int    `json:"forward_links"`
	Backlinks    int    `json:"backlinks"`
	Degree       int    `json:"degree"`
}

// AnalyzeLinks walks the cache and reports edge totals, broken
// references, orphans, and the ten most connected notes. Degree ties
// rank lexicographically by path.
func (v *Vault) AnalyzeLinks() *LinkAnalysis {
	v.mu.Lock()
	defer v.mu.Unlock()

	a := &LinkAnalysis{
		BrokenLinks: []string{},
		Orphans:     []string{},
	}
	paths := v.sortedPathsLocked()

	for _, p := range paths {
		a.TotalLinks += len(v.forward[p])
		for _, ref := range v.notes[p].Refs {
			if v.resolveLocked(ref) == "" {
				a.BrokenLinks = append(a.BrokenLinks, p+": "+ref)
			}
		}
		if len(v.forward[p]) == 0 && len(v.backward[p]) == 0 {
			a.Orphans = append(a.Orphans, p)
		}
	}

	central := make([]CentralNote, 0, len(paths))
	for _, p := range paths {
		c := CentralNote{
			Path:         p,
			ForwardLinks: len(v.forward[p]),
			Backlinks:    len(v.backward[p]),
		}
		c.Degree = c.ForwardLinks + c.Backlinks
		central = append(central, c)
	}
	slices.SortStableFunc(central, func(a, b CentralNote) int {
		return b.Degree - a.Degree
	})
	if len(central) > 10 {
		central = central[:10]
	}
	a.Central = central
	return a
}

// TagCount pairs a tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RecentNote is one entry in the recency listing.
type RecentNote struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

// VaultStats aggregates counts over the whole cache.
type VaultStats struct {
	TotalNotes   int          `json:"total_notes"`
	TotalWords   int          `json:"total_words"`
	AverageWords int          `json:"average_words"` // rounded, 0 for an empty vault
	DistinctTags int          `json:"distinct_tags"`
	TopTags      []TagCount   `json:"top_tags"`     // top 5 by frequency
	RecentNotes  []RecentNote `json:"recent_notes"` // 10 most recently modified
}

// Statistics computes aggregate counts over the cache.
func (v *Vault) Statistics() *VaultStats {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := &VaultStats{
		TotalNotes: len(v.notes),
		TopTags:    []TagCount{},
	}
	tagCounts := make(map[string]int)
	for _, n := range v.notes {
		s.TotalWords += n.WordCount
		for _, t := range n.Tags {
			tagCounts[t]++
		}
	}
	if s.TotalNotes > 0 {
		s.AverageWords = int(math.Round(float64(s.TotalWords) / float64(s.TotalNotes)))
	}
	s.DistinctTags = len(tagCounts)

	tags := make([]TagCount, 0, len(tagCounts))
	for t, c := range tagCounts {
		tags = append(tags, TagCount{Tag: t, Count: c})
	}
	slices.SortFunc(tags, func(a, b TagCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	if len(tags) > 5 {
		tags = tags[:5]
	}
	s.TopTags = tags

	recent := v.sortedPathsLocked()
	slices.SortStableFunc(recent, func(a, b string) int {
		return v.notes[b].UpdatedAt.Compare(v.notes[a].UpdatedAt)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	s.RecentNotes = make([]RecentNote, 0, len(recent))
	for _, p := range recent {
		n := v.notes[p]
		s.RecentNotes = append(s.RecentNotes, RecentNote{
			Path:      p,
			Title:     n.Title,
			UpdatedAt: n.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return s
}
