package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/cof"
	"github.com/clawvcs/claw/objects"
)

func (s *Store) reflogPath(name RefName) string {
	return filepath.Join(s.root, "logs", string(name))
}

// appendReflog appends one length-prefixed RefLog frame to the ref's
// append-only log file, creating it on first use. The file is opened
// O_APPEND so concurrent writers (already serialized by the refs lock
// in UpdateRefsCas) can never interleave partial frames.
func (s *Store) appendReflog(name RefName, oldId, newId [32]byte, actor, message string) error {
	entry := &objects.RefLog{
		RefName:     string(name),
		Old:         oldId,
		New:         newId,
		Actor:       actor,
		Message:     message,
		TimestampMs: nowMs(),
	}

	encoded, err := encodeReflogFrame(entry)
	if err != nil {
		return err
	}

	path := s.reflogPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	defer f.Close()

	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	return f.Sync()
}

// encodeReflogFrame wraps a RefLog entry in a COF container and
// prefixes it with a uvarint length, so ReflogIterator can read frames
// back one at a time without needing the COF reader to scan forward
// byte-by-byte through the whole file.
func encodeReflogFrame(entry *objects.RefLog) ([]byte, error) {
	var inner bytesWriter
	if err := cof.Write(&inner, byte(entry.Kind()), entry.Encode()); err != nil {
		return nil, err
	}
	lenPrefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenPrefix, uint64(len(inner.buf)))
	out := make([]byte, 0, n+len(inner.buf))
	out = append(out, lenPrefix[:n]...)
	out = append(out, inner.buf...)
	return out, nil
}

type bytesWriter struct{ buf []byte }

func (w *bytesWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// ReflogIterator reads a ref's reflog entries in append order (oldest
// first).
type ReflogIterator struct {
	f   *os.File
	r   *bufio.Reader
}

// OpenReflog returns an iterator over name's reflog. A ref with no
// history yet yields (nil, nil) on the first Next call.
func (s *Store) OpenReflog(name RefName) (*ReflogIterator, error) {
	f, err := os.Open(s.reflogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return &ReflogIterator{}, nil
		}
		return nil, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	return &ReflogIterator{f: f, r: bufio.NewReader(f)}, nil
}

// Next returns the next reflog entry, or (nil, nil) once exhausted.
func (it *ReflogIterator) Next() (*objects.RefLog, error) {
	if it.r == nil {
		return nil, nil
	}
	frameLen, err := binary.ReadUvarint(it.r)
	if err != nil {
		return nil, nil // EOF: no more entries
	}
	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(it.r, frame); err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	decoded, _, err := cof.Read(frame)
	if err != nil {
		return nil, err
	}
	obj, err := objects.Decode(objects.Kind(decoded.TypeTag), decoded.Payload)
	if err != nil {
		return nil, err
	}
	entry, ok := obj.(*objects.RefLog)
	if !ok {
		return nil, clawerr.ErrDeserialization
	}
	return entry, nil
}

// Close releases the iterator's underlying file handle.
func (it *ReflogIterator) Close() error {
	if it.f == nil {
		return nil
	}
	return it.f.Close()
}

