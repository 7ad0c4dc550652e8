package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultMaxLineBytes bounds a single NDJSON line, guarding the stream
// ingestor against an unbounded single-line payload exhausting memory.
const DefaultMaxLineBytes = 1 << 20

// readLineLimited reads one newline-delimited line from r, enforcing
// maxBytes, ported from the line-splitting primitive the teacher's
// chunked-stream decoder uses (pkg/stream/decoder.go): bufio.ReadSlice
// handles the buffer-too-small case by looping rather than growing
// unboundedly, and the trailing newline is stripped from the result.
func readLineLimited(r *bufio.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}

	var out []byte
	for {
		frag, err := r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > maxBytes {
			return nil, errors.New("ingest: line exceeds max bytes")
		}
		if err == nil {
			return bytes.TrimSuffix(out, []byte("\n")), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		return nil, err
	}
}
