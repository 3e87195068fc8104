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

// Package worker drives incremental sync runs against the openFDA API.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/fetch"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/connector/metrics"
	"github.com/openfda-labs/go-fda-connector/logger"
)

// Syncer produces the event sequence of one endpoint's incremental sync.
// It is safe to run Sync multiple times sequentially on the same Syncer,
// each run resuming from the state the caller hands in.
type Syncer struct {
	cfg        *config.SyncConfiguration
	descriptor *endpoints.Descriptor
	client     *fetch.Client
	limiter    *rate.Limiter
	mService   metrics.MonitoringService
	log        logger.Logger
}

// NewSyncer validates the configuration and builds a syncer for its
// endpoint. An unknown endpoint key is a configuration error.
func NewSyncer(cfg *config.SyncConfiguration) (*Syncer, error) {
	descriptor, err := endpoints.Get(cfg.EndpointKey)
	if err != nil {
		return nil, err
	}

	mService := cfg.MonitoringService
	if mService == nil {
		mService = &metrics.NoopMonitoringService{}
	}
	if err := mService.Init(cfg.ApplicationName, cfg.EndpointKey, cfg.WorkerID); err != nil {
		return nil, err
	}

	// The limiter paces page fetches; the burst of one lets the first
	// page go out immediately.
	limit := rate.Inf
	if cfg.InterPageDelayMillis > 0 {
		limit = rate.Every(time.Duration(cfg.InterPageDelayMillis) * time.Millisecond)
	}

	return &Syncer{
		cfg:        cfg,
		descriptor: descriptor,
		client:     fetch.NewClient(cfg, descriptor),
		limiter:    rate.NewLimiter(limit, 1),
		mService:   mService,
		log:        cfg.Logger,
	}, nil
}

// Schema returns the destination schema of the configured endpoint.
func (s *Syncer) Schema() *endpoints.Schema {
	schema := s.descriptor.Schema
	return &schema
}

// Sync starts a sync run resuming from the given state and returns its
// event channel. The channel yields interleaved UPSERT and CHECKPOINT
// events, ends with exactly one COMPLETE event, and is closed afterwards.
// Cancelling the context stops the run; the channel is closed without a
// COMPLETE event in that case.
func (s *Syncer) Sync(ctx context.Context, startingState interfaces.State) <-chan interfaces.Event {
	events := make(chan interfaces.Event)
	go s.run(ctx, startingState, events)
	return events
}

func (s *Syncer) run(ctx context.Context, startingState interfaces.State, events chan<- interfaces.Event) {
	defer close(events)

	skip := startingState.Skip
	if skip < 0 {
		s.log.Warnf("Negative starting skip %d for %v, restarting from zero", skip, s.cfg.EndpointKey)
		skip = 0
	}

	s.log.Infof("Starting sync of %v from skip %d in worker %v", s.cfg.EndpointKey, skip, s.cfg.WorkerID)

	emit := func(event interfaces.Event) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	recordsSynced := 0
	recordsSkipped := 0

	complete := func(status interfaces.SyncStatus, cause error) {
		s.mService.SyncCompleted(s.cfg.EndpointKey, interfaces.StatusMessage(status))
		s.log.Infof("Sync of %v finished with status %v after %d records (%d skipped)",
			s.cfg.EndpointKey, interfaces.StatusMessage(status), recordsSynced, recordsSkipped)
		emit(interfaces.Event{
			Type: interfaces.COMPLETE,
			Complete: &interfaces.CompleteEvent{
				Status:         status,
				Cause:          cause,
				RecordsSynced:  recordsSynced,
				RecordsSkipped: recordsSkipped,
			},
		})
	}

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		page, err := s.client.GetPage(ctx, &fetch.PageRequest{Skip: skip, Limit: s.cfg.PageSize})
		if err != nil {
			switch {
			case errors.Is(err, fetch.ErrNoResults):
				complete(interfaces.EXHAUSTED, nil)
			case isRateLimitExhausted(err):
				s.log.Errorf("Giving up on %v at skip %d: %v", s.cfg.EndpointKey, skip, err)
				complete(interfaces.RATE_LIMIT_EXHAUSTED, err)
			case ctx.Err() != nil:
				// Cancelled mid-fetch. The caller asked the run to stop,
				// so no terminal status is reported.
			default:
				s.log.Errorf("Aborting sync of %v at skip %d: %v", s.cfg.EndpointKey, skip, err)
				complete(interfaces.ABORTED_ON_ERROR, err)
			}
			return
		}

		fetchedAt := time.Now().UTC()
		pageSynced := 0
		for _, item := range page.Results {
			record, err := s.descriptor.Normalize(item, fetchedAt)
			if err != nil {
				recordsSkipped++
				s.mService.IncrRecordsSkipped(s.cfg.EndpointKey, 1)
				s.log.Warnf("Skipping malformed %v item at skip %d: %v", s.cfg.EndpointKey, skip, err)
				continue
			}
			if !emit(interfaces.Event{
				Type:   interfaces.UPSERT,
				Upsert: &interfaces.UpsertEvent{Table: s.descriptor.Schema.Table, Record: record},
			}) {
				return
			}
			recordsSynced++
			pageSynced++
		}
		s.mService.IncrRecordsSynced(s.cfg.EndpointKey, pageSynced)

		// The checkpoint advances by the raw item count, malformed items
		// included, so a resumed run never refetches a dropped item.
		skip += len(page.Results)
		if !emit(interfaces.Event{
			Type:       interfaces.CHECKPOINT,
			Checkpoint: &interfaces.CheckpointEvent{State: interfaces.State{Skip: skip}},
		}) {
			return
		}

		if len(page.Results) < s.cfg.PageSize {
			complete(interfaces.EXHAUSTED, nil)
			return
		}
	}
}

func isRateLimitExhausted(err error) bool {
	var exhausted *fetch.ErrRateLimitExhausted
	return errors.As(err, &exhausted)
}
