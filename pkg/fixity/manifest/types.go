// Package manifest builds, stores and verifies content-integrity manifests.
package manifest

import (
	"github.com/jamesainslie/fixity/pkg/fixity/digest"
)

// Manifest records the digest and size of every regular file under Root.
type Manifest struct {
	Root    string  `json:"root"`
	Entries []Entry `json:"entries"`
}

// Entry is one file in a manifest. Path is relative to the manifest root
// and uses '/' separators.
type Entry struct {
	Path   string        `json:"path"`
	SHA256 digest.Digest `json:"sha256"`
	Size   int64         `json:"size"`
}

// TotalSize sums the sizes of all entries.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.Entries {
		total += e.Size
	}
	return total
}

// Status classifies one entry during verification.
type Status string

const (
	// StatusOK means the file exists and its digest matches.
	StatusOK Status = "OK"
	// StatusChanged means the file exists but its digest differs.
	StatusChanged Status = "CHANGED"
	// StatusMissing means the file no longer exists.
	StatusMissing Status = "MISSING"
)

// Check is the verification outcome of a single entry. Actual is empty for
// missing files.
type Check struct {
	Path     string        `json:"path" yaml:"path"`
	Status   Status        `json:"status" yaml:"status"`
	Expected digest.Digest `json:"expected" yaml:"expected"`
	Actual   digest.Digest `json:"actual,omitempty" yaml:"actual,omitempty"`
	Size     int64         `json:"size" yaml:"size"`
}

// Counts tallies checks per status.
type Counts struct {
	OK      int `json:"ok" yaml:"ok"`
	Changed int `json:"changed" yaml:"changed"`
	Missing int `json:"missing" yaml:"missing"`
}

// Add records one status.
func (c *Counts) Add(s Status) {
	switch s {
	case StatusOK:
		c.OK++
	case StatusChanged:
		c.Changed++
	case StatusMissing:
		c.Missing++
	}
}

// Total returns the number of checks counted.
func (c Counts) Total() int { return c.OK + c.Changed + c.Missing }

// Report is the result of verifying a manifest.
type Report struct {
	Manifest string  `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Root     string  `json:"root" yaml:"root"`
	Checks   []Check `json:"checks" yaml:"checks"`
	Counts   Counts  `json:"counts" yaml:"counts"`
}

// Clean reports whether every entry verified OK.
func (r *Report) Clean() bool {
	return r.Counts.Changed == 0 && r.Counts.Missing == 0
}
