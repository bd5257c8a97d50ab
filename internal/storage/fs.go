package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbirkeland/eihwaz/internal/apperr"
	"github.com/nbirkeland/eihwaz/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist and be readable.
func NewFS(root string) (*FS, error) {
	expanded, err := expandHome(root)
	if err != nil {
		return nil, fmt.Errorf("storage: expand root: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: vault root %s: %w", abs, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: vault root %s: %w", abs, apperr.ErrNotAccessible)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: vault root %s: %w", abs, apperr.ErrNotADirectory)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("storage: vault root %s: %w", abs, apperr.ErrNotAccessible)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the vault root. It rejects
// hidden segments in the requested path and any result that escapes the
// root after cleaning, comparing case-folded so that mixed-case prefixes
// cannot sneak past on case-insensitive file systems.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg != "." && seg != ".." && strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("storage: hidden segment in %q: %w", rel, apperr.ErrAccessDenied)
		}
	}
	expanded, err := expandHome(rel)
	if err != nil {
		return "", fmt.Errorf("storage: expand %q: %w", rel, err)
	}
	joined := expanded
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(f.root, joined)
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %q: %w", rel, err)
	}
	sep := string(os.PathSeparator)
	rootFold := strings.ToLower(f.root) + sep
	if strings.ToLower(abs)+sep != rootFold && !strings.HasPrefix(strings.ToLower(abs), rootFold) {
		return "", fmt.Errorf("storage: path %q escapes vault root: %w", rel, apperr.ErrAccessDenied)
	}
	return abs, nil
}

// expandHome substitutes a leading "~" with the current user's home
// directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~"+string(os.PathSeparator)) && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}

// List walks dir (relative to root) and returns metadata for every .md
// file, skipping hidden files and directories.
func (f *FS) List(dir string) ([]models.FileMeta, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileMeta
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != base && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileMeta{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".eihwaz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames a file within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// Stat returns metadata for a single vault file.
func (f *FS) Stat(path string) (models.FileMeta, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.FileMeta{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return models.FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, apperr.ErrNotFound)
		}
		return models.FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return models.FileMeta{
		Path:      filepath.ToSlash(path),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}
