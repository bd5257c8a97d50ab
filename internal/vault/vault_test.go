package vault

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nbirkeland/eihwaz/internal/apperr"
	"github.com/nbirkeland/eihwaz/internal/search"
	"github.com/nbirkeland/eihwaz/internal/storage"
)

func newTestVault(t *testing.T) (string, *Vault) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := search.New()
	if err != nil {
		t.Fatal(err)
	}
	v := New(store, engine, slog.New(slog.DiscardHandler))
	if err := v.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return dir, v
}

func TestCreateReadRoundTrip(t *testing.T) {
	_, v := newTestVault(t)

	fm := map[string]any{"title": "Trip Plan", "status": "draft"}
	if _, err := v.Create("trips/rome.md", "Pack light.\n", fm); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := v.Read("trips/rome.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n.Body != "Pack light.\n" {
		t.Errorf("Body = %q", n.Body)
	}
	if n.Frontmatter["title"] != "Trip Plan" || n.Frontmatter["status"] != "draft" {
		t.Errorf("Frontmatter = %v", n.Frontmatter)
	}
	if n.Title != "Trip Plan" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.Name != "rome" {
		t.Errorf("Name = %q", n.Name)
	}
}

func TestCreateWithoutFrontmatterOmitsBlock(t *testing.T) {
	dir, v := newTestVault(t)
	if _, err := v.Create("plain", "just text", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "plain.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "just text" {
		t.Errorf("on-disk content = %q, want no frontmatter block", raw)
	}
}

func TestExtensionNormalization(t *testing.T) {
	dir, v := newTestVault(t)
	if _, err := v.Create("note", "hello", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "note.md")); err != nil {
		t.Errorf("note.md not on disk: %v", err)
	}
	bare, err := v.Read("note")
	if err != nil {
		t.Fatalf("Read bare: %v", err)
	}
	withExt, err := v.Read("note.md")
	if err != nil {
		t.Fatalf("Read with ext: %v", err)
	}
	if bare.Path != "note.md" || withExt.Path != "note.md" {
		t.Errorf("paths = %q, %q, want note.md", bare.Path, withExt.Path)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	_, v := newTestVault(t)
	fm := map[string]any{"title": "Original"}
	if _, err := v.Create("doc", "first body", fm); err != nil {
		t.Fatal(err)
	}

	body := "second body"
	n, err := v.Update("doc", &body, nil)
	if err != nil {
		t.Fatalf("Update content: %v", err)
	}
	if n.Body != "second body" {
		t.Errorf("Body = %q", n.Body)
	}
	if n.Frontmatter["title"] != "Original" {
		t.Errorf("Frontmatter lost: %v", n.Frontmatter)
	}

	n, err = v.Update("doc", nil, map[string]any{"title": "Renamed"})
	if err != nil {
		t.Fatalf("Update frontmatter: %v", err)
	}
	if n.Body != "second body" {
		t.Errorf("Body changed: %q", n.Body)
	}
	if n.Title != "Renamed" {
		t.Errorf("Title = %q", n.Title)
	}
}

func TestUpdateMissingNote(t *testing.T) {
	_, v := newTestVault(t)
	body := "x"
	if _, err := v.Update("ghost", &body, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingNote(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Delete("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPathGuardRejection(t *testing.T) {
	_, v := newTestVault(t)
	for _, p := range []string{"../../etc/passwd", ".hidden.md"} {
		if _, err := v.Create(p, "x", nil); !errors.Is(err, apperr.ErrAccessDenied) {
			t.Errorf("Create(%q): err = %v, want ErrAccessDenied", p, err)
		}
	}
	if _, err := v.Create("notes/sub/a.md", "fine", nil); err != nil {
		t.Errorf("Create(notes/sub/a.md): %v", err)
	}
}

func TestSelfHealingRead(t *testing.T) {
	dir, v := newTestVault(t)
	// Drop a file behind the vault's back.
	if err := os.WriteFile(filepath.Join(dir, "external.md"), []byte("came from outside"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := v.Read("external.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n.Body != "came from outside" {
		t.Errorf("Body = %q", n.Body)
	}
}

func TestInitializeSkipsHiddenAndNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.md":            "alpha",
		"sub/b.md":        "beta",
		".obsidian/c.md":  "hidden",
		"sub/listing.txt": "not markdown",
	}
	for p, c := range files {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(c), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := search.New()
	if err != nil {
		t.Fatal(err)
	}
	v := New(store, engine, slog.New(slog.DiscardHandler))
	if err := v.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })

	items := v.List()
	if len(items) != 2 {
		t.Fatalf("cached %d notes, want 2: %+v", len(items), items)
	}
	if items[0].Path != "a.md" || items[1].Path != "sub/b.md" {
		t.Errorf("paths = %s, %s", items[0].Path, items[1].Path)
	}
}

func TestSearchWithTagFilter(t *testing.T) {
	_, v := newTestVault(t)
	if _, err := v.Create("garden", "growing tomatoes in summer #garden", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Create("cooking", "cooking tomatoes into sauce #kitchen", nil); err != nil {
		t.Fatal(err)
	}

	all, err := v.Search("tomatoes", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered hits = %d, want 2", len(all))
	}

	filtered, err := v.Search("tomatoes", []string{"kitchen"}, 10)
	if err != nil {
		t.Fatalf("Search with tags: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Path != "cooking.md" {
		t.Errorf("filtered = %+v, want only cooking.md", filtered)
	}
}

func TestSearchReflectsMutations(t *testing.T) {
	_, v := newTestVault(t)
	if _, err := v.Create("temp", "a very distinctive keyword xylophone", nil); err != nil {
		t.Fatal(err)
	}
	hits, err := v.Search("xylophone", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits before delete = %d, want 1", len(hits))
	}
	if err := v.Delete("temp"); err != nil {
		t.Fatal(err)
	}
	hits, err = v.Search("xylophone", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits after delete = %d, want 0", len(hits))
	}
}

func TestStatistics(t *testing.T) {
	_, v := newTestVault(t)
	// Word counts 8, 8, 6: total 22, rounded average 7.
	notes := map[string]string{
		"one":   "w1 w2 w3 w4 w5 w6 w7 w8",
		"two":   "w1 w2 w3 w4 w5 w6 w7 w8",
		"three": "w1 w2 w3 w4 w5 w6",
	}
	for p, body := range notes {
		if _, err := v.Create(p, body, nil); err != nil {
			t.Fatal(err)
		}
	}

	s := v.Statistics()
	if s.TotalNotes != 3 {
		t.Errorf("TotalNotes = %d", s.TotalNotes)
	}
	if s.TotalWords != 22 {
		t.Errorf("TotalWords = %d, want 22", s.TotalWords)
	}
	if s.AverageWords != 7 {
		t.Errorf("AverageWords = %d, want 7", s.AverageWords)
	}
}

func TestStatisticsEmptyVault(t *testing.T) {
	_, v := newTestVault(t)
	s := v.Statistics()
	if s.TotalNotes != 0 || s.AverageWords != 0 {
		t.Errorf("stats = %+v, want zeros", s)
	}
}

func TestStatisticsTopTags(t *testing.T) {
	_, v := newTestVault(t)
	if _, err := v.Create("a", "#shared #rare", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Create("b", "#shared", nil); err != nil {
		t.Fatal(err)
	}

	s := v.Statistics()
	if s.DistinctTags != 2 {
		t.Errorf("DistinctTags = %d, want 2", s.DistinctTags)
	}
	if len(s.TopTags) != 2 || s.TopTags[0].Tag != "shared" || s.TopTags[0].Count != 2 {
		t.Errorf("TopTags = %+v", s.TopTags)
	}
}
