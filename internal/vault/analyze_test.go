package vault

import (
	"slices"
	"testing"
)

func TestOrphanCorrectness(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("linked a", "see [[linked b]]", nil)
	_, _ = v.Create("linked b", "plain", nil)
	_, _ = v.Create("island", "nobody references this", nil)

	a := v.AnalyzeLinks()
	if !slices.Equal(a.Orphans, []string{"island.md"}) {
		t.Errorf("Orphans = %v, want [island.md]", a.Orphans)
	}
}

func TestAnalyzeTotalsAndCentral(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("core", "see [[left]] and [[right]]", nil)
	_, _ = v.Create("left", "back to [[core]]", nil)
	_, _ = v.Create("right", "no outgoing", nil)

	a := v.AnalyzeLinks()
	if a.TotalLinks != 3 {
		t.Errorf("TotalLinks = %d, want 3", a.TotalLinks)
	}
	if len(a.BrokenLinks) != 0 {
		t.Errorf("BrokenLinks = %v, want none", a.BrokenLinks)
	}
	if len(a.Central) != 3 {
		t.Fatalf("len(Central) = %d, want 3", len(a.Central))
	}
	if a.Central[0].Path != "core.md" || a.Central[0].Degree != 3 {
		t.Errorf("Central[0] = %+v, want core.md with degree 3", a.Central[0])
	}
	// left and right both have degree 2 and 1; ties and order fall back
	// to lexicographic path order.
	if a.Central[1].Path != "left.md" {
		t.Errorf("Central[1] = %+v", a.Central[1])
	}
}

func TestAnalyzeCentralCapsAtTen(t *testing.T) {
	_, v := newTestVault(t)
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		if _, err := v.Create(p, "body", nil); err != nil {
			t.Fatal(err)
		}
	}
	a := v.AnalyzeLinks()
	if len(a.Central) != 10 {
		t.Errorf("len(Central) = %d, want 10", len(a.Central))
	}
}

func TestBrokenLinkFormat(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("dangling", "points at [[missing target]]", nil)

	a := v.AnalyzeLinks()
	want := "dangling.md: missing target"
	if !slices.Contains(a.BrokenLinks, want) {
		t.Errorf("BrokenLinks = %v, want %q", a.BrokenLinks, want)
	}
}

func TestStatisticsRecentNotes(t *testing.T) {
	_, v := newTestVault(t)
	for _, p := range []string{"one", "two", "three"} {
		if _, err := v.Create(p, "text", nil); err != nil {
			t.Fatal(err)
		}
	}
	s := v.Statistics()
	if len(s.RecentNotes) != 3 {
		t.Fatalf("RecentNotes = %+v, want 3 entries", s.RecentNotes)
	}
	for _, r := range s.RecentNotes {
		if r.UpdatedAt == "" {
			t.Errorf("entry %s has empty timestamp", r.Path)
		}
	}
}
