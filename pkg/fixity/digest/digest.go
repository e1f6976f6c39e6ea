// Package digest streams file contents through SHA-256 and reports the
// lowercase hex digest together with the number of bytes read.
//
// The hash function is fixed: manifests written by one build must verify
// under any other, so the algorithm is not configurable.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm names the hash function in log records.
const Algorithm = "sha256"

// HexLen is the length of an encoded digest.
const HexLen = sha256.Size * 2

// DefaultBufferSize is the chunk size used when none is configured.
const DefaultBufferSize = 64 * 1024

// Digest is a lowercase hex-encoded SHA-256 value.
type Digest string

// String returns the hex encoding.
func (d Digest) String() string { return string(d) }

// Valid reports whether d is HexLen lowercase hex characters.
func (d Digest) Valid() bool {
	if len(d) != HexLen {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Accumulator is a running SHA-256 state plus a byte counter.
// The zero value is not usable; call NewAccumulator.
type Accumulator struct {
	h hash.Hash
	n int64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{h: sha256.New()}
}

// Update feeds p into the hash.
func (a *Accumulator) Update(p []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = a.h.Write(p)
	a.n += int64(len(p))
}

// Write implements io.Writer so an Accumulator can be an io.Copy target.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.Update(p)
	return len(p), nil
}

// Size returns the number of bytes fed so far.
func (a *Accumulator) Size() int64 { return a.n }

// Finalize returns the digest of everything written. It does not reset
// the accumulator.
func (a *Accumulator) Finalize() Digest {
	return Digest(hex.EncodeToString(a.h.Sum(nil)))
}

// Error records a failed open or read together with the file involved.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File hashes the file at path, reading bufSize bytes at a time. A bufSize
// of zero or less selects DefaultBufferSize. The file is closed before File
// returns on every path.
func File(path string, bufSize int) (Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &Error{Op: "open", Path: path, Err: unwrapPathError(err)}
	}
	defer f.Close()

	d, n, err := Reader(f, bufSize)
	if err != nil {
		return "", 0, &Error{Op: "read", Path: path, Err: unwrapPathError(err)}
	}
	return d, n, nil
}

// Reader hashes everything r yields until EOF.
func Reader(r io.Reader, bufSize int) (Digest, int64, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	acc := NewAccumulator()
	buf := make([]byte, bufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			acc.Update(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}
	return acc.Finalize(), acc.Size(), nil
}

// unwrapPathError drops the *os.PathError layer so the path is not
// repeated in Error's message.
func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
