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
	"errors"
	"sync"

	chk "github.com/openfda-labs/go-fda-connector/connector/checkpoint"
	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/connector/metrics"
)

/**
 * Worker is the high level class that applications use to run a managed sync.
 * It initializes and oversees the different components: resuming from the
 * persisted checkpoint, driving the sync loop, feeding events to the
 * application sink and persisting the advanced checkpoints.
 */
type Worker struct {
	endpointKey string
	workerID    string

	sink         interfaces.IEventSink
	cfg          *config.SyncConfiguration
	syncer       *Syncer
	checkpointer chk.Checkpointer
	mService     metrics.MonitoringService

	stop      *chan struct{}
	waitGroup *sync.WaitGroup
	done      bool
}

// NewWorker constructs a Worker instance that feeds sync events into the
// given sink.
func NewWorker(sink interfaces.IEventSink, cfg *config.SyncConfiguration) *Worker {
	mService := cfg.MonitoringService
	if mService == nil {
		// Replaces nil with noop monitor service (not emitting any metrics).
		mService = &metrics.NoopMonitoringService{}
	}

	return &Worker{
		endpointKey: cfg.EndpointKey,
		workerID:    cfg.WorkerID,
		sink:        sink,
		cfg:         cfg,
		mService:    mService,
		done:        false,
	}
}

// WithCheckpointer is used to provide a custom checkpointer service for
// non-default implementation or unit testing.
func (w *Worker) WithCheckpointer(checker chk.Checkpointer) *Worker {
	w.checkpointer = checker
	return w
}

// Start begins the managed sync run in the background. It resumes from the
// checkpointer's saved state and returns once the run is underway.
func (w *Worker) Start() error {
	log := w.cfg.Logger
	startingState, err := w.initialize()
	if err != nil {
		log.Errorf("Failed to initialize Worker: %+v", err)
		return err
	}

	// Start monitoring service
	log.Infof("Starting monitoring service.")
	if err := w.mService.Start(); err != nil {
		log.Errorf("Failed to start monitoring service: %+v", err)
		return err
	}

	log.Infof("Starting worker event loop.")
	w.waitGroup.Add(1)
	go func() {
		defer w.waitGroup.Done()
		// entering event loop
		w.eventLoop(startingState)
	}()
	return nil
}

// Shutdown signals the worker to stop and blocks until the event loop has
// drained. Safe to call after the run has already completed on its own.
func (w *Worker) Shutdown() {
	log := w.cfg.Logger
	log.Infof("Worker shutdown in requested.")

	if w.done || w.stop == nil {
		return
	}

	close(*w.stop)
	w.done = true
	w.waitGroup.Wait()

	w.mService.Shutdown()
	log.Infof("Worker loop is complete. Exiting from worker.")
}

func (w *Worker) initialize() (interfaces.State, error) {
	log := w.cfg.Logger
	log.Infof("Worker initialization in progress...")

	syncer, err := NewSyncer(w.cfg)
	if err != nil {
		return interfaces.State{}, err
	}
	w.syncer = syncer

	// Create default in-memory checkpointer implementation
	if w.checkpointer == nil {
		log.Infof("Creating in-memory checkpointer")
		w.checkpointer = chk.NewInMemoryCheckpointer()
	} else {
		log.Infof("Use custom checkpointer implementation.")
	}

	log.Infof("Initializing Checkpointer")
	if err := w.checkpointer.Init(); err != nil {
		log.Errorf("Failed to start Checkpointer: %+v", err)
		return interfaces.State{}, err
	}

	startingState, err := w.checkpointer.FetchCheckpoint(w.endpointKey)
	if errors.Is(err, chk.ErrCheckpointNotFound) {
		log.Infof("No saved checkpoint for %v, starting from the beginning", w.endpointKey)
		startingState = interfaces.State{}
	} else if err != nil {
		return interfaces.State{}, err
	}

	w.sink.Initialize(&interfaces.InitializationInput{
		EndpointKey:   w.endpointKey,
		Schema:        syncer.Schema(),
		StartingState: startingState,
	})

	stopChan := make(chan struct{})
	w.stop = &stopChan
	w.waitGroup = &sync.WaitGroup{}

	log.Infof("Initialization complete.")
	return startingState, nil
}

func (w *Worker) eventLoop(startingState interfaces.State) {
	log := w.cfg.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-*w.stop
		cancel()
	}()

	var complete *interfaces.CompleteEvent
	for event := range w.syncer.Sync(ctx, startingState) {
		event := event
		if err := w.sink.ProcessEvent(&event); err != nil {
			log.Errorf("Sink failed processing event, stopping run: %+v", err)
			break
		}

		switch event.Type {
		case interfaces.CHECKPOINT:
			if err := w.checkpointer.SaveCheckpoint(w.endpointKey, event.Checkpoint.State); err != nil {
				log.Errorf("Failed to save checkpoint for %v: %+v", w.endpointKey, err)
			}
		case interfaces.COMPLETE:
			complete = event.Complete
		}
	}

	w.sink.Shutdown(&interfaces.ShutdownInput{Complete: complete})
}
