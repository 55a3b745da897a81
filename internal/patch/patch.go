package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Patch is a literal edit of one file.
type Patch struct {
	// File is the path of the file to edit.
	File string
	// Find is the text to search for.
	Find string
	// Replace is the text written in place of the first occurrence of Find.
	Replace string
}

// Result describes the outcome of applying one patch.
type Result struct {
	// File is the patched file.
	File string

	// Find is the search text.
	Find string

	// Patched is true when the file was changed.
	Patched bool

	// AlreadyApplied is true when Find was absent but Replace was already
	// present, i.e. an earlier run patched the file.
	AlreadyApplied bool

	// Occurrences is how many times Find appeared before patching.
	Occurrences int
}

// Apply replaces the first occurrence of find in the file at path.
//
// A missing file is an error. A file without find is left untouched and the
// result reports Patched=false.
func Apply(path, find, replace string) (*Result, error) {
	if find == "" {
		return nil, ErrEmptyFind
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the project file
	if err != nil {
		return nil, err
	}
	content := string(data)

	result := &Result{
		File:        path,
		Find:        find,
		Occurrences: strings.Count(content, find),
	}

	if result.Occurrences == 0 {
		result.AlreadyApplied = replace != "" && strings.Contains(content, replace)
		return result, nil
	}

	patched := strings.Replace(content, find, replace, 1)
	if err := writeFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return nil, err
	}
	result.Patched = true

	return result, nil
}

// ApplyAll applies patches in order and returns one result per patch.
// It stops at the first error.
func ApplyAll(patches []Patch) ([]*Result, error) {
	results := make([]*Result, 0, len(patches))
	for _, p := range patches {
		r, err := Apply(p.File, p.Find, p.Replace)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
