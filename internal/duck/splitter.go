// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package duck

import (
	"bytes"
	"errors"
)

// FrameSplitter reassembles delimiter-separated frames from a byte stream
// that arrives in arbitrary chunks. Bytes after the last complete delimiter
// are retained until more data arrives, so the emitted frames do not depend
// on how the transport happened to split the stream.
type FrameSplitter struct {
	buf   []byte
	delim []byte
}

// NewFrameSplitter creates a splitter for the given delimiter. The delimiter
// must be non-empty.
func NewFrameSplitter(delim []byte) (*FrameSplitter, error) {
	if len(delim) == 0 {
		return nil, errors.New("frame delimiter must be non-empty")
	}
	d := make([]byte, len(delim))
	copy(d, delim)
	return &FrameSplitter{delim: d}, nil
}

// Push appends a chunk to the retained buffer and returns every complete
// frame now available, in stream order. Frames exclude the delimiter. An
// empty chunk returns nil without touching the buffer.
func (s *FrameSplitter) Push(p []byte) [][]byte {
	if len(p) == 0 {
		return nil
	}

	// A delimiter may straddle the chunk boundary, so rescan the last
	// len(delim)-1 retained bytes but nothing before them.
	start := len(s.buf) - len(s.delim) + 1
	if start < 0 {
		start = 0
	}
	s.buf = append(s.buf, p...)

	var frames [][]byte
	for {
		i := bytes.Index(s.buf[start:], s.delim)
		if i < 0 {
			break
		}
		end := start + i

		frame := make([]byte, end)
		copy(frame, s.buf[:end])
		frames = append(frames, frame)

		s.buf = s.buf[end+len(s.delim):]
		start = 0
	}
	return frames
}

// Pending returns a copy of the bytes retained since the last complete
// frame. A stream that ends with pending bytes was truncated mid-frame.
func (s *FrameSplitter) Pending() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}
