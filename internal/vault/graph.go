package vault

import (
	"slices"

	"github.com/nbirkeland/eihwaz/internal/models"
)

// rebuildGraphLocked recomputes both link maps from scratch. The graph
// is never patched incrementally: a new note can turn a previously
// broken reference in some other note into an edge, so only a full
// rebuild keeps forward and backward views symmetric.
func (v *Vault) rebuildGraphLocked() {
	forward := make(map[string]map[string]struct{}, len(v.notes))
	backward := make(map[string]map[string]struct{}, len(v.notes))

	for _, src := range v.sortedPathsLocked() {
		for _, ref := range v.notes[src].Refs {
			dst := v.resolveLocked(ref)
			if dst == "" {
				continue
			}
			if forward[src] == nil {
				forward[src] = make(map[string]struct{})
			}
			forward[src][dst] = struct{}{}
			if backward[dst] == nil {
				backward[dst] = make(map[string]struct{})
			}
			backward[dst][src] = struct{}{}
		}
	}
	v.forward = forward
	v.backward = backward
}

// Backlinks returns the paths of notes linking to p, sorted. Unknown
// paths yield an empty list, not an error.
func (v *Vault) Backlinks(p string) []string {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()
	return setToSorted(v.backward[p])
}

// ForwardLinks returns the resolved outgoing link targets of p, sorted.
func (v *Vault) ForwardLinks(p string) []string {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()
	return setToSorted(v.forward[p])
}

// Links returns every edge in the graph, sorted by source then target.
func (v *Vault) Links() []models.Link {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []models.Link
	for _, src := range v.sortedPathsLocked() {
		for _, dst := range setToSorted(v.forward[src]) {
			out = append(out, models.Link{Source: src, Target: dst})
		}
	}
	return out
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
