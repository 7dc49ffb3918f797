// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package grep

import (
	"bufio"
	"io"
	"regexp"
	"sync"

	"github.com/pingcap/errors"
	cerrors "github.com/pingcap/shardgrep/pkg/errors"
)

const (
	// DefaultOutputBufferSize is the size of the shared output buffer.
	DefaultOutputBufferSize = 8192
	// noneGroup is printed for a capture group that took no part in a match.
	noneGroup = "[NONE]"
	groupSep  = "\t"
)

// LineProcessor matches lines against a regular expression and writes the
// result of every matching line to a shared buffered writer.
//
// For a pattern with capture groups, the groups are written joined by a tab,
// a group that did not participate in the match is written as "[NONE]".
// For a pattern without groups, the whole match is written.
// Lines that do not match produce no output.
//
// LineProcessor is safe for concurrent use. Write errors are dropped.
type LineProcessor struct {
	re *regexp.Regexp

	mu sync.Mutex
	w  *bufio.Writer
	// buf is reused to format a result under mu.
	buf []byte
}

// NewLineProcessor compiles pattern and returns a LineProcessor writing to out
// through a buffer of bufSize bytes.
func NewLineProcessor(pattern string, out io.Writer, bufSize int) (*LineProcessor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, cerrors.ErrInvalidPattern.GenWithStackByArgs(pattern, err)
	}
	if bufSize <= 0 {
		bufSize = DefaultOutputBufferSize
	}
	return &LineProcessor{
		re: re,
		w:  bufio.NewWriterSize(out, bufSize),
	}, nil
}

// Process implements actor.Processor.
func (p *LineProcessor) Process(line string) {
	loc := p.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = appendResult(p.buf[:0], line, loc)
	_, _ = p.w.Write(p.buf)
}

// Flush writes any buffered output to the underlying writer.
func (p *LineProcessor) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return errors.Trace(p.w.Flush())
}

// appendResult formats a match given by loc, as returned by
// FindStringSubmatchIndex, and appends it to dst.
func appendResult(dst []byte, line string, loc []int) []byte {
	groups := len(loc) / 2
	if groups == 1 {
		dst = append(dst, line[loc[0]:loc[1]]...)
		return append(dst, '\n')
	}
	for i := 1; i < groups; i++ {
		if i > 1 {
			dst = append(dst, groupSep...)
		}
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			dst = append(dst, noneGroup...)
			continue
		}
		dst = append(dst, line[start:end]...)
	}
	return append(dst, '\n')
}
