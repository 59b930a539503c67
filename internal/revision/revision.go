// Package revision computes the next Rev<major>.<minor> stamp for a
// generated document family by scanning existing output filenames. Revision
// state deliberately lives in the filesystem, not in the store.
package revision

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Initial is the revision assigned to the first document of a family.
const Initial = "Rev1.0"

// Placeholder is the revision suffix base filenames carry before the real
// revision is resolved.
const Placeholder = "- Rev1.0.xlsx"

var revPattern = regexp.MustCompile(`- Rev(\d+)\.(\d+)\.xlsx$`)

// Next scans dir for files that share baseFileName's prefix and returns the
// revision following the latest one found: the minor version of the highest
// (major, minor) pair plus one. The major version is never bumped here.
//
// A missing directory or a directory without matching files yields Initial
// immediately. Filenames that carry the prefix but no parsable revision
// suffix are ignored, not errors.
func Next(dir, baseFileName string) string {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return Initial
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Initial
	}

	prefix := strings.TrimSuffix(baseFileName, Placeholder)

	bestMajor, bestMinor, found := 0, 0, false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".xlsx") {
			continue
		}
		m := revPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		if !found || major > bestMajor || (major == bestMajor && minor > bestMinor) {
			bestMajor, bestMinor, found = major, minor, true
		}
	}

	if !found {
		return Initial
	}
	return fmt.Sprintf("Rev%d.%d", bestMajor, bestMinor+1)
}

// Locker serializes the scan-then-write window per output directory, so two
// generations for the same process cannot both compute the same next
// revision inside one server process.
type Locker struct {
	mu   sync.Mutex
	dirs map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{dirs: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for dir and returns its release function.
func (l *Locker) Lock(dir string) func() {
	l.mu.Lock()
	m, ok := l.dirs[dir]
	if !ok {
		m = &sync.Mutex{}
		l.dirs[dir] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
