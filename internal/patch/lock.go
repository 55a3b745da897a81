package patch

import (
	"path/filepath"
	"sync"
)

// Locker serializes edits of the same file. Apply reads, edits and renames
// the whole file, so two concurrent edits of one loader would drop one of them.
type Locker struct {
	mu    sync.Mutex
	files map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{files: make(map[string]*sync.Mutex)}
}

// Lock blocks until path is free and returns the function that releases it.
// Paths are compared after filepath.Abs and filepath.Clean.
func (l *Locker) Lock(path string) (unlock func()) {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	l.mu.Lock()
	m, ok := l.files[key]
	if !ok {
		m = &sync.Mutex{}
		l.files[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ApplyLocked is Apply holding l's lock on path.
func (l *Locker) ApplyLocked(path, find, replace string) (*Result, error) {
	unlock := l.Lock(path)
	defer unlock()
	return Apply(path, find, replace)
}
