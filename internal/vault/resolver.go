package vault

import "strings"

// resolveLocked maps a raw reference string to a cached note path, or ""
// when the reference is broken. Policy: strip a trailing .md, then
// (1) exact match on display name or path, (2) first note whose display
// name case-insensitively contains the reference, walking paths in
// lexicographic order so partial matches are deterministic.
func (v *Vault) resolveLocked(ref string) string {
	cleaned := strings.TrimSuffix(ref, ".md")
	if cleaned == "" {
		return ""
	}

	paths := v.sortedPathsLocked()
	for _, p := range paths {
		n := v.notes[p]
		if n.Name == cleaned || n.Path == cleaned || n.Path == ref || n.Path == cleaned+".md" {
			return p
		}
	}
	lower := strings.ToLower(cleaned)
	for _, p := range paths {
		if strings.Contains(strings.ToLower(v.notes[p].Name), lower) {
			return p
		}
	}
	return ""
}
