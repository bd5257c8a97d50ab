package vault

import (
	"slices"
	"testing"
)

// checkSymmetry verifies B ∈ forward(A) iff A ∈ backlinks(B) for every
// cached pair.
func checkSymmetry(t *testing.T, v *Vault) {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	for src, targets := range v.forward {
		for dst := range targets {
			if _, ok := v.backward[dst][src]; !ok {
				t.Errorf("forward %s -> %s has no backward edge", src, dst)
			}
		}
	}
	for dst, sources := range v.backward {
		for src := range sources {
			if _, ok := v.forward[src][dst]; !ok {
				t.Errorf("backward %s <- %s has no forward edge", dst, src)
			}
		}
	}
}

func TestGraphSymmetry(t *testing.T) {
	_, v := newTestVault(t)
	if _, err := v.Create("a", "links to [[b]] and [[c]]", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Create("b", "links back to [[a]]", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Create("c", "no links", nil); err != nil {
		t.Fatal(err)
	}
	checkSymmetry(t, v)

	body := "now links to [[c]] only"
	if _, err := v.Update("a", &body, nil); err != nil {
		t.Fatal(err)
	}
	checkSymmetry(t, v)

	if err := v.Delete("c"); err != nil {
		t.Fatal(err)
	}
	checkSymmetry(t, v)
}

func TestBacklinksAndForwardLinks(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("hub", "see [[spoke one]] and [[spoke two]]", nil)
	_, _ = v.Create("spoke one", "back to [[hub]]", nil)
	_, _ = v.Create("spoke two", "standalone text", nil)

	fwd := v.ForwardLinks("hub")
	want := []string{"spoke one.md", "spoke two.md"}
	if !slices.Equal(fwd, want) {
		t.Errorf("ForwardLinks(hub) = %v, want %v", fwd, want)
	}
	back := v.Backlinks("hub")
	if !slices.Equal(back, []string{"spoke one.md"}) {
		t.Errorf("Backlinks(hub) = %v", back)
	}
}

func TestLinksUnknownPathEmpty(t *testing.T) {
	_, v := newTestVault(t)
	if got := v.Backlinks("nowhere"); len(got) != 0 {
		t.Errorf("Backlinks = %v, want empty", got)
	}
	if got := v.ForwardLinks("nowhere"); len(got) != 0 {
		t.Errorf("ForwardLinks = %v, want empty", got)
	}
}

func TestLateNoteResolvesEarlierReference(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("early", "points at [[late]]", nil)

	if got := v.ForwardLinks("early"); len(got) != 0 {
		t.Fatalf("link resolved before target exists: %v", got)
	}

	_, _ = v.Create("late", "arrived after the reference", nil)
	if got := v.ForwardLinks("early"); !slices.Equal(got, []string{"late.md"}) {
		t.Errorf("ForwardLinks(early) = %v, want [late.md]", got)
	}
	if got := v.Backlinks("late"); !slices.Equal(got, []string{"early.md"}) {
		t.Errorf("Backlinks(late) = %v, want [early.md]", got)
	}
}

func TestResolverPolicy(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("projects/apollo", "mission notes", nil)
	_, _ = v.Create("apollo history", "background", nil)

	v.mu.Lock()
	defer v.mu.Unlock()

	// Exact display-name match wins over partial matches.
	if got := v.resolveLocked("apollo"); got != "projects/apollo.md" {
		t.Errorf("resolve(apollo) = %q", got)
	}
	// Trailing .md is stripped before matching.
	if got := v.resolveLocked("apollo.md"); got != "projects/apollo.md" {
		t.Errorf("resolve(apollo.md) = %q", got)
	}
	// Full path matches exactly.
	if got := v.resolveLocked("projects/apollo"); got != "projects/apollo.md" {
		t.Errorf("resolve(projects/apollo) = %q", got)
	}
	// Partial matches are case-insensitive and walk paths in
	// lexicographic order, so "apollo history.md" comes first.
	if got := v.resolveLocked("APOLLO HIST"); got != "apollo history.md" {
		t.Errorf("resolve(APOLLO HIST) = %q", got)
	}
	if got := v.resolveLocked("no such note"); got != "" {
		t.Errorf("resolve(no such note) = %q, want empty", got)
	}
}

func TestFullPathReferenceResolves(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("projects/apollo", "mission notes", nil)
	_, _ = v.Create("index", "see [[projects/apollo]]", nil)

	if got := v.ForwardLinks("index"); !slices.Equal(got, []string{"projects/apollo.md"}) {
		t.Errorf("ForwardLinks(index) = %v, want [projects/apollo.md]", got)
	}
	if br := v.AnalyzeLinks().BrokenLinks; len(br) != 0 {
		t.Errorf("broken links = %v, want none", br)
	}
}

func TestDeletePurgesGraph(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("a", "target note", nil)
	_, _ = v.Create("b", "references [[a]]", nil)

	if got := v.ForwardLinks("b"); !slices.Equal(got, []string{"a.md"}) {
		t.Fatalf("ForwardLinks(b) = %v", got)
	}

	if err := v.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if got := v.ForwardLinks("b"); len(got) != 0 {
		t.Errorf("ForwardLinks(b) after delete = %v, want empty", got)
	}
	analysis := v.AnalyzeLinks()
	if !slices.Contains(analysis.BrokenLinks, "b.md: a") {
		t.Errorf("BrokenLinks = %v, want entry %q", analysis.BrokenLinks, "b.md: a")
	}
	checkSymmetry(t, v)
}

func TestLinksListing(t *testing.T) {
	_, v := newTestVault(t)
	_, _ = v.Create("x", "[[y]]", nil)
	_, _ = v.Create("y", "[[x]]", nil)

	links := v.Links()
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	if links[0].Source != "x.md" || links[0].Target != "y.md" {
		t.Errorf("links[0] = %+v", links[0])
	}
}
