package media

import (
	"os"
	"path/filepath"
	"strings"
)

// Candidate is a file the user picked for one check cycle.
// The zero value means no file was supplied.
type Candidate struct {
	Path string
	Name string
	Size int64
}

// NewCandidate builds a candidate from a filesystem path. The size is filled
// in when the file can be stat'ed; a missing file is still a candidate and
// fails later, during staging.
func NewCandidate(path string) Candidate {
	path = strings.TrimSpace(path)
	if path == "" {
		return Candidate{}
	}
	c := Candidate{Path: path, Name: filepath.Base(path)}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.Size = info.Size()
	}
	return c
}

// IsZero reports whether no file was supplied.
func (c Candidate) IsZero() bool {
	return c.Path == "" && c.Name == ""
}

// Extension returns the lower-cased text after the final dot of the file
// name. A name without a dot yields the whole name.
func (c Candidate) Extension() string {
	return Extension(c.Name)
}

// Extension returns the lower-cased final dot-segment of name.
func Extension(name string) string {
	name = strings.ToLower(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
