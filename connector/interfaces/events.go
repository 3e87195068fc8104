/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// Package interfaces contains the public API between the sync loop and the
// application consuming its events.
package interfaces

import (
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
)

const (
	// UPSERT carries one normalized record for the destination table.
	UPSERT EventType = iota + 1

	// CHECKPOINT carries the advanced resumption state. The consumer is
	// expected to persist it verbatim and hand it back on the next run.
	CHECKPOINT

	// COMPLETE is the terminal event of every sync run. Its status
	// distinguishes legitimate exhaustion from an aborted run.
	COMPLETE
)

const (
	// EXHAUSTED means the last page was smaller than the page size; there
	// is no more data at the source.
	EXHAUSTED SyncStatus = iota + 1

	// ABORTED_ON_ERROR means a page fetch failed after the retry policy
	// and the run stopped early. Records emitted so far are still valid.
	ABORTED_ON_ERROR

	// RATE_LIMIT_EXHAUSTED means the source kept answering 429 past the
	// configured retry budget.
	RATE_LIMIT_EXHAUSTED
)

type (
	// EventType tags the variants of Event.
	EventType int

	// SyncStatus is the terminal status of one sync run.
	SyncStatus int

	// State is the resumption position handed between sync runs. Skip is
	// the count of records already consumed for the configured endpoint
	// and filter; it never decreases during a run.
	State struct {
		Skip int `json:"skip"`
	}

	// Event is one element of the sequence produced by a sync run.
	// Exactly one of Upsert, Checkpoint and Complete is set, selected by
	// Type.
	Event struct {
		Type EventType

		Upsert     *UpsertEvent
		Checkpoint *CheckpointEvent
		Complete   *CompleteEvent
	}

	// UpsertEvent carries one normalized record and its destination table.
	// The sink deduplicates on the schema primary key; delivery is
	// at-least-once.
	UpsertEvent struct {
		Table  string
		Record endpoints.Record
	}

	// CheckpointEvent carries the state advanced past the page that was
	// just emitted.
	CheckpointEvent struct {
		State State
	}

	// CompleteEvent reports why the sequence ended and what it produced.
	CompleteEvent struct {
		Status SyncStatus

		// Cause is set for ABORTED_ON_ERROR and RATE_LIMIT_EXHAUSTED.
		Cause error

		// RecordsSynced counts emitted upserts; RecordsSkipped counts
		// malformed items dropped during normalization.
		RecordsSynced  int
		RecordsSkipped int
	}
)

var statusMap = map[SyncStatus]string{
	EXHAUSTED:            "EXHAUSTED",
	ABORTED_ON_ERROR:     "ABORTED_ON_ERROR",
	RATE_LIMIT_EXHAUSTED: "RATE_LIMIT_EXHAUSTED",
}

// StatusMessage returns the wire name of a terminal status.
func StatusMessage(status SyncStatus) string {
	return statusMap[status]
}
