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

package errors

import (
	"context"

	"github.com/pingcap/errors"
)

// errors
var (
	// config related errors
	ErrNoPattern = errors.Normalize(
		"no pattern given",
		errors.RFCCodeText("SG:ErrNoPattern"),
	)
	ErrInvalidPattern = errors.Normalize(
		"invalid pattern %q, %s",
		errors.RFCCodeText("SG:ErrInvalidPattern"),
	)
	ErrInvalidConfig = errors.Normalize(
		"invalid config, %s",
		errors.RFCCodeText("SG:ErrInvalidConfig"),
	)
	ErrDecodeConfigFile = errors.Normalize(
		"decode config file %s failed, %s",
		errors.RFCCodeText("SG:ErrDecodeConfigFile"),
	)

	// actor and workerpool related errors
	ErrMailboxFull = errors.Normalize(
		"mailbox is full, please try again. Internal use only, report a bug if seen externally",
		errors.RFCCodeText("SG:ErrMailboxFull"),
	)
	ErrAsyncPoolExited = errors.Normalize(
		"asyncPool has exited. Report a bug if seen externally.",
		errors.RFCCodeText("SG:ErrAsyncPoolExited"),
	)

	// input and output related errors
	ErrReadInput = errors.Normalize(
		"read input failed, %s",
		errors.RFCCodeText("SG:ErrReadInput"),
	)
	ErrStatusServer = errors.Normalize(
		"status server failed, addr %s, %s",
		errors.RFCCodeText("SG:ErrStatusServer"),
	)
	ErrAPIInvalidParam = errors.Normalize(
		"invalid api parameter, %s",
		errors.RFCCodeText("SG:ErrAPIInvalidParam"),
	)
)

// IsContextCanceledError checks if an error is caused by context.Canceled.
func IsContextCanceledError(err error) bool {
	return errors.Cause(err) == context.Canceled
}

// IsContextDoneError checks if an error is caused by the end of a context,
// either a cancellation or a deadline.
func IsContextDoneError(err error) bool {
	cause := errors.Cause(err)
	return cause == context.Canceled || cause == context.DeadlineExceeded
}
