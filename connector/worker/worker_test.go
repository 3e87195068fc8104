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
package worker

import (
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chk "github.com/openfda-labs/go-fda-connector/connector/checkpoint"
	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
)

// recordingSink captures the worker's callbacks for assertions.
type recordingSink struct {
	mu sync.Mutex

	initialization *interfaces.InitializationInput
	upserts        int
	checkpoints    []int
	shutdownInput  *interfaces.ShutdownInput

	// failAfterUpserts aborts the run from the sink side. Zero disables.
	failAfterUpserts int

	done chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Initialize(input *interfaces.InitializationInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialization = input
}

func (s *recordingSink) ProcessEvent(event *interfaces.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch event.Type {
	case interfaces.UPSERT:
		s.upserts++
		if s.failAfterUpserts > 0 && s.upserts >= s.failAfterUpserts {
			return errors.New("destination rejected the record")
		}
	case interfaces.CHECKPOINT:
		s.checkpoints = append(s.checkpoints, event.Checkpoint.State.Skip)
	}
	return nil
}

func (s *recordingSink) Shutdown(input *interfaces.ShutdownInput) {
	s.mu.Lock()
	s.shutdownInput = input
	s.mu.Unlock()
	close(s.done)
}

func (s *recordingSink) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker run did not finish")
	}
}

func workerConfig(t *testing.T, fake *fakeFDA, pageSize int) *config.SyncConfiguration {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return config.NewSyncConfig("fda-sync-test", endpoints.DrugAdverseEvents).
		WithBaseURL(server.URL).
		WithPageSize(pageSize).
		WithRateLimitCooldownMillis(1).
		WithInterPageDelayMillis(0)
}

func TestWorkerRunsToCompletion(t *testing.T) {
	sink := newRecordingSink()
	checkpointer := chk.NewInMemoryCheckpointer()

	worker := NewWorker(sink, workerConfig(t, newFakeFDA(25), 10)).WithCheckpointer(checkpointer)
	require.NoError(t, worker.Start())
	sink.waitDone(t)
	worker.Shutdown()

	require.NotNil(t, sink.initialization)
	assert.Equal(t, endpoints.DrugAdverseEvents, sink.initialization.EndpointKey)
	assert.Equal(t, "fda_drug_adverse_events", sink.initialization.Schema.Table)
	assert.Equal(t, 0, sink.initialization.StartingState.Skip)

	assert.Equal(t, 25, sink.upserts)
	assert.Equal(t, []int{10, 20, 25}, sink.checkpoints)

	require.NotNil(t, sink.shutdownInput)
	require.NotNil(t, sink.shutdownInput.Complete)
	assert.Equal(t, interfaces.EXHAUSTED, sink.shutdownInput.Complete.Status)

	// The final checkpoint was persisted for the next run.
	state, err := checkpointer.FetchCheckpoint(endpoints.DrugAdverseEvents)
	assert.NoError(t, err)
	assert.Equal(t, 25, state.Skip)
}

func TestWorkerResumesFromSavedCheckpoint(t *testing.T) {
	checkpointer := chk.NewInMemoryCheckpointer()
	require.NoError(t, checkpointer.Init())
	require.NoError(t, checkpointer.SaveCheckpoint(endpoints.DrugAdverseEvents, interfaces.State{Skip: 20}))

	sink := newRecordingSink()
	worker := NewWorker(sink, workerConfig(t, newFakeFDA(25), 10)).WithCheckpointer(checkpointer)
	require.NoError(t, worker.Start())
	sink.waitDone(t)
	worker.Shutdown()

	assert.Equal(t, 20, sink.initialization.StartingState.Skip)
	assert.Equal(t, 5, sink.upserts)
	assert.Equal(t, []int{25}, sink.checkpoints)
}

func TestWorkerStopsWhenSinkFails(t *testing.T) {
	sink := newRecordingSink()
	sink.failAfterUpserts = 5

	worker := NewWorker(sink, workerConfig(t, newFakeFDA(25), 10)).WithCheckpointer(chk.NewInMemoryCheckpointer())
	require.NoError(t, worker.Start())
	sink.waitDone(t)
	worker.Shutdown()

	assert.Equal(t, 5, sink.upserts)
	require.NotNil(t, sink.shutdownInput)
	// The run was cut short, so no terminal status is reported.
	assert.Nil(t, sink.shutdownInput.Complete)
}

func TestWorkerShutdownMidRun(t *testing.T) {
	fake := newFakeFDA(100000)
	sink := newRecordingSink()

	worker := NewWorker(sink, workerConfig(t, fake, 10)).WithCheckpointer(chk.NewInMemoryCheckpointer())
	require.NoError(t, worker.Start())
	worker.Shutdown()

	sink.waitDone(t)
	require.NotNil(t, sink.shutdownInput)
	assert.Nil(t, sink.shutdownInput.Complete)
}

func TestWorkerStartFailsOnUnknownEndpoint(t *testing.T) {
	cfg := config.NewSyncConfig("fda-sync-test", "bogus")
	worker := NewWorker(newRecordingSink(), cfg)
	assert.Error(t, worker.Start())
}
