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

// Package actor provides a single-queue mailbox actor. Many actors share one
// workerpool.AsyncPool, and each actor is drained by at most one pool worker
// at a time.
//
// The following diagram shows how a message reaches a processor.
//
//	,----------.        ,-----.              ,---------.        ,---------.
//	|Dispatcher|        |Actor|              |AsyncPool|        |Processor|
//	`----+-----'        `--+--'              `----+----'        `----+----'
//	     |                 |                      |                  |
//	     |   Send(msg)     |                      |                  |
//	     | --------------->|                      |                  |
//	     |                 |----.                 |                  |
//	     |                 |    | push msg,       |                  |
//	     |                 |    | scheduled?      |                  |
//	     |                 |<---'                 |                  |
//	     |                 |                      |                  |
//	     |                 |  Go(drain), only if  |                  |
//	     |                 |  it was idle         |                  |
//	     |                 | -------------------->|                  |
//	     |                 |                      |                  |
//	     |                 |       drain()        |                  |
//	     |                 |<---------------------|                  |
//	     |                 |                      |                  |
//	     |                 |----.                 |                  |
//	     |                 |    | pop batch       |                  |
//	     |                 |<---'                 |                  |
//	     |                 |                      |                  |
//	     |                 |             Process(msg), FIFO          |
//	     |                 | --------------------------------------->|
//	     |                 |                      |                  |
//	     |                 |----.                 |                  |
//	     |                 |    | queue empty:    |                  |
//	     |                 |    | scheduled=false |                  |
//	     |                 |<---'                 |                  |
//	,----+-----.        ,--+--.              ,----+----.        ,----+----.
//	|Dispatcher|        |Actor|              |AsyncPool|        |Processor|
//	`----------'        `-----'              `---------'        `---------'
//
// The queue and the scheduled flag are guarded by the same mutex. Send pushes
// and tests the flag in one critical section, and the drain task observes the
// empty queue and clears the flag in one critical section, so a message sent
// while a drain task is finishing is either popped by that task or makes the
// sender submit a new one.
package actor
