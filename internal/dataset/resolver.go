package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrOutsideRoot  = errors.New("file is outside the data root")
)

type FileInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// Resolver maps caller-supplied file names to vetted dataset sources inside a
// single data root. With a pinned file configured, only that file resolves.
type Resolver struct {
	root       string
	singleFile string
}

func NewResolver(dataDir, dataFile string) (*Resolver, error) {
	if strings.TrimSpace(dataFile) != "" {
		abs, err := filepath.Abs(dataFile)
		if err != nil {
			return nil, fmt.Errorf("resolve data file: %w", err)
		}
		if _, err := DetectFormat(abs); err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, dataFile)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, dataFile)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve data file: %w", err)
		}
		return &Resolver{root: filepath.Dir(resolved), singleFile: resolved}, nil
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	return &Resolver{root: resolved}, nil
}

func (r *Resolver) Root() string {
	return r.root
}

func (r *Resolver) SingleFile() (Source, bool) {
	if r.singleFile == "" {
		return Source{}, false
	}
	src, err := NewSource(r.singleFile)
	if err != nil {
		return Source{}, false
	}
	return src, true
}

// Resolve vets a file name against the root: containment first, then the
// extension allow-list, then existence. The returned source carries the
// symlink-resolved path so soft-delete entries key consistently.
func (r *Resolver) Resolve(name string) (Source, error) {
	if r.singleFile != "" {
		if name != "" && filepath.Clean(filepath.Join(r.root, filepath.FromSlash(name))) != r.singleFile {
			return Source{}, fmt.Errorf("%w: %q does not match the configured data file", ErrOutsideRoot, name)
		}
		return NewSource(r.singleFile)
	}

	if strings.TrimSpace(name) == "" {
		return Source{}, fmt.Errorf("%w: file name is required", ErrFileNotFound)
	}
	joined := filepath.Clean(filepath.Join(r.root, filepath.FromSlash(name)))
	if !within(r.root, joined) {
		return Source{}, fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	src, err := NewSource(joined)
	if err != nil {
		return Source{}, err
	}
	info, err := os.Stat(joined)
	if err != nil || info.IsDir() {
		return Source{}, fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	if !within(r.root, resolved) {
		return Source{}, fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	src.Path = resolved
	return src, nil
}

// List walks the root for supported dataset files, names relative to the root
// with forward slashes. Dotfiles and dot-directories are skipped.
func (r *Resolver) List() ([]FileInfo, error) {
	if r.singleFile != "" {
		info, err := os.Stat(r.singleFile)
		if err != nil {
			return nil, fmt.Errorf("stat data file: %w", err)
		}
		return []FileInfo{{
			Name:      filepath.Base(r.singleFile),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().UTC(),
		}}, nil
	}

	files := make([]FileInfo, 0)
	err := filepath.WalkDir(r.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != r.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if _, err := DetectFormat(path); err != nil {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Name:      filepath.ToSlash(rel),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk data dir: %w", err)
	}
	return files, nil
}

// UploadTarget picks a collision-free destination in the root for an uploaded
// base name, suffixing the stem with _1, _2, ... while a file already exists.
func (r *Resolver) UploadTarget(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: empty upload name", ErrFileNotFound)
	}
	format, err := DetectFormat(base)
	if err != nil {
		return "", err
	}
	if !format.Uploadable() {
		return "", fmt.Errorf("%w: %s uploads are not accepted", ErrUnsupportedFormat, format)
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "dataset"
	}
	candidate := filepath.Join(r.root, stem+ext)
	for index := 1; ; index++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		candidate = filepath.Join(r.root, fmt.Sprintf("%s_%d%s", stem, index, ext))
	}
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
