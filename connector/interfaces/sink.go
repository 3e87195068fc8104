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
package interfaces

import (
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
)

type (
	// InitializationInput is handed to the sink before the first event of
	// a worker-driven run.
	InitializationInput struct {
		// EndpointKey identifies the configured source.
		EndpointKey string

		// Schema is the destination schema the sink should provision.
		Schema *endpoints.Schema

		// StartingState is the checkpoint the run resumes from.
		StartingState State
	}

	// ShutdownInput is handed to the sink after the last event.
	ShutdownInput struct {
		// Complete is the terminal event of the run; nil when shutdown
		// was requested before the run finished on its own.
		Complete *CompleteEvent
	}
)

// IEventSink consumes the event sequence of a worker-driven sync run.
//
// ProcessEvent is called once per event, in emission order, from a single
// goroutine. Returning an error aborts the run; the sink should only do so
// for unrecoverable destination failures since emitted records are already
// past the point of replay within this run.
type IEventSink interface {
	Initialize(initializationInput *InitializationInput)

	ProcessEvent(event *Event) error

	Shutdown(shutdownInput *ShutdownInput)
}
