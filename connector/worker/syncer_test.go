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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
)

// fakeFDA serves a fixed number of drug adverse event records with
// openFDA style offset pagination.
type fakeFDA struct {
	totalRecords int

	// rateLimitCalls makes the first n requests answer 429.
	rateLimitCalls int

	// failFromSkip makes requests at or past this offset answer 500.
	// Negative disables it.
	failFromSkip int

	// malformedEvery drops the primary key from every nth record.
	// Zero disables it.
	malformedEvery int

	calls int
}

func (f *fakeFDA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls++
	if f.calls <= f.rateLimitCalls {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if f.failFromSkip >= 0 && skip >= f.failFromSkip {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body := `{"meta":{},"results":[`
	count := 0
	for i := skip; i < f.totalRecords && count < limit; i++ {
		if count > 0 {
			body += ","
		}
		if f.malformedEvery > 0 && (i+1)%f.malformedEvery == 0 {
			body += `{"receivedate":"20200101"}`
		} else {
			body += fmt.Sprintf(`{"safetyreportid":"SR-%d","receivedate":"20200101","serious":"1"}`, i)
		}
		count++
	}
	body += `]}`
	fmt.Fprint(w, body)
}

func newFakeFDA(totalRecords int) *fakeFDA {
	return &fakeFDA{totalRecords: totalRecords, failFromSkip: -1}
}

func syncerUnderTest(t *testing.T, fake *fakeFDA, pageSize int) *Syncer {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := config.NewSyncConfig("fda-sync-test", endpoints.DrugAdverseEvents).
		WithBaseURL(server.URL).
		WithPageSize(pageSize).
		WithRateLimitCooldownMillis(1).
		WithInterPageDelayMillis(0)

	syncer, err := NewSyncer(cfg)
	require.NoError(t, err)
	return syncer
}

func collect(t *testing.T, events <-chan interfaces.Event) (upserts []interfaces.UpsertEvent, checkpoints []int, complete *interfaces.CompleteEvent) {
	t.Helper()
	for event := range events {
		switch event.Type {
		case interfaces.UPSERT:
			assert.Nil(t, complete, "event after COMPLETE")
			upserts = append(upserts, *event.Upsert)
		case interfaces.CHECKPOINT:
			assert.Nil(t, complete, "event after COMPLETE")
			checkpoints = append(checkpoints, event.Checkpoint.State.Skip)
		case interfaces.COMPLETE:
			assert.Nil(t, complete, "multiple COMPLETE events")
			complete = event.Complete
		}
	}
	return upserts, checkpoints, complete
}

func TestSyncPagination(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(25), 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	assert.Len(t, upserts, 25)
	assert.Equal(t, []int{10, 20, 25}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
	assert.NoError(t, complete.Cause)
	assert.Equal(t, 25, complete.RecordsSynced)
	assert.Equal(t, 0, complete.RecordsSkipped)

	assert.Equal(t, "fda_drug_adverse_events", upserts[0].Table)
	assert.Equal(t, "SR-0", upserts[0].Record["safetyreportid"])
	assert.Equal(t, "SR-24", upserts[24].Record["safetyreportid"])
}

func TestSyncResume(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(25), 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{Skip: 20}))

	assert.Len(t, upserts, 5)
	assert.Equal(t, "SR-20", upserts[0].Record["safetyreportid"])
	assert.Equal(t, []int{25}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
}

func TestSyncResumeMatchesFullRun(t *testing.T) {
	// A run resumed from a checkpoint emits exactly the records a full
	// run would have emitted past that offset.
	full := syncerUnderTest(t, newFakeFDA(25), 10)
	fullUpserts, _, _ := collect(t, full.Sync(context.Background(), interfaces.State{}))

	resumed := syncerUnderTest(t, newFakeFDA(25), 10)
	resumedUpserts, _, _ := collect(t, resumed.Sync(context.Background(), interfaces.State{Skip: 10}))

	require.Len(t, fullUpserts, 25)
	require.Len(t, resumedUpserts, 15)
	for i, upsert := range resumedUpserts {
		assert.Equal(t, fullUpserts[10+i].Record["safetyreportid"], upsert.Record["safetyreportid"])
	}
}

func TestSyncEmptySource(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(0), 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	assert.Empty(t, upserts)
	assert.Empty(t, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
	assert.Equal(t, 0, complete.RecordsSynced)
}

func TestSyncExactPageMultiple(t *testing.T) {
	// 20 records with page size 10 needs a third, empty page to prove
	// exhaustion.
	fake := newFakeFDA(20)
	syncer := syncerUnderTest(t, fake, 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	assert.Len(t, upserts, 20)
	assert.Equal(t, []int{10, 20}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
	assert.Equal(t, 3, fake.calls)
}

func TestSyncSkipsMalformedItems(t *testing.T) {
	fake := newFakeFDA(10)
	fake.malformedEvery = 5 // records 4 and 9 lack the primary key
	syncer := syncerUnderTest(t, fake, 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	assert.Len(t, upserts, 8)
	// The checkpoint still advances past the dropped items.
	assert.Equal(t, []int{10}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
	assert.Equal(t, 8, complete.RecordsSynced)
	assert.Equal(t, 2, complete.RecordsSkipped)
}

func TestSyncRecoversFromRateLimit(t *testing.T) {
	fake := newFakeFDA(25)
	fake.rateLimitCalls = 1
	syncer := syncerUnderTest(t, fake, 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	// Identical to a run that was never rate limited.
	assert.Len(t, upserts, 25)
	assert.Equal(t, []int{10, 20, 25}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
}

func TestSyncRateLimitExhausted(t *testing.T) {
	fake := newFakeFDA(25)
	fake.rateLimitCalls = 1000
	syncer := syncerUnderTest(t, fake, 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	assert.Empty(t, upserts)
	assert.Empty(t, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.RATE_LIMIT_EXHAUSTED, complete.Status)
	assert.Error(t, complete.Cause)
}

func TestSyncAbortsOnServerError(t *testing.T) {
	fake := newFakeFDA(25)
	fake.failFromSkip = 10 // first page succeeds, second fails
	syncer := syncerUnderTest(t, fake, 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{}))

	// The first page's records and checkpoint were already emitted, so
	// the next run resumes past them.
	assert.Len(t, upserts, 10)
	assert.Equal(t, []int{10}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.ABORTED_ON_ERROR, complete.Status)
	assert.Error(t, complete.Cause)
	assert.Equal(t, 10, complete.RecordsSynced)
}

func TestSyncNegativeSkipRestartsFromZero(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(5), 10)

	upserts, checkpoints, complete := collect(t, syncer.Sync(context.Background(), interfaces.State{Skip: -7}))

	assert.Len(t, upserts, 5)
	assert.Equal(t, []int{5}, checkpoints)
	require.NotNil(t, complete)
	assert.Equal(t, interfaces.EXHAUSTED, complete.Status)
}

func TestSyncCancellation(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(1000), 10)

	ctx, cancel := context.WithCancel(context.Background())
	events := syncer.Sync(ctx, interfaces.State{})

	// Take one event, then cancel. The channel must close without a
	// COMPLETE event.
	<-events
	cancel()

	sawComplete := false
	for event := range events {
		if event.Type == interfaces.COMPLETE {
			sawComplete = true
		}
	}
	assert.False(t, sawComplete)
}

func TestNewSyncerUnknownEndpoint(t *testing.T) {
	cfg := config.NewSyncConfig("fda-sync-test", "no_such_endpoint")
	_, err := NewSyncer(cfg)
	require.Error(t, err)

	var unknown endpoints.ErrUnknownEndpoint
	assert.ErrorAs(t, err, &unknown)
}

func TestSyncerSchema(t *testing.T) {
	syncer := syncerUnderTest(t, newFakeFDA(0), 10)

	schema := syncer.Schema()
	require.NotNil(t, schema)
	assert.Equal(t, "fda_drug_adverse_events", schema.Table)
	assert.Equal(t, []string{"safetyreportid"}, schema.PrimaryKey)
}
