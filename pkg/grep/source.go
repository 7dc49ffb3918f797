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
	"context"
	"io"
	"strings"

	"github.com/pingcap/errors"
	cerrors "github.com/pingcap/shardgrep/pkg/errors"
)

const readBufferSize = 64 * 1024

// ForEachLine reads r line by line and calls fn with every line, without its
// trailing "\n" or "\r\n". A last line that is not terminated by a newline is
// passed too. It stops at the first error returned by fn, or when ctx is done.
func ForEachLine(ctx context.Context, r io.Reader, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}

		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if ferr := fn(trimNewline(line)); ferr != nil {
				return errors.Trace(ferr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return cerrors.ErrReadInput.GenWithStackByArgs(err)
		}
	}
}

func trimNewline(line string) string {
	if !strings.HasSuffix(line, "\n") {
		return line
	}
	line = line[:len(line)-1]
	return strings.TrimSuffix(line, "\r")
}
