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
package prometheus

import (
	"net/http"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openfda-labs/go-fda-connector/logger"
)

// MonitoringService publishes connector metrics to Prometheus.
// It might be tricky if the service onboarding with the connector already
// uses Prometheus on the default mux.
type MonitoringService struct {
	listenAddress string
	namespace     string
	endpointKey   string
	workerID      string
	logger        logger.Logger

	syncedRecords  *prom.CounterVec
	skippedRecords *prom.CounterVec
	fetchedPages   *prom.CounterVec
	rateLimitWaits *prom.CounterVec
	pageFetchTime  *prom.HistogramVec
	syncCompleted  *prom.CounterVec
}

// NewMonitoringService returns a monitoring service publishing metrics to Prometheus.
func NewMonitoringService(listenAddress string, logger logger.Logger) *MonitoringService {
	return &MonitoringService{
		listenAddress: listenAddress,
		logger:        logger,
	}
}

func (p *MonitoringService) Init(appName, endpointKey, workerID string) error {
	// Metric names only allow [a-zA-Z0-9_:].
	p.namespace = strings.ReplaceAll(appName, "-", "_")
	p.endpointKey = endpointKey
	p.workerID = workerID

	p.syncedRecords = prom.NewCounterVec(prom.CounterOpts{
		Name: p.namespace + `_synced_records`,
		Help: "Number of records normalized and emitted",
	}, []string{"endpoint"})
	p.skippedRecords = prom.NewCounterVec(prom.CounterOpts{
		Name: p.namespace + `_skipped_records`,
		Help: "Number of malformed records skipped during normalization",
	}, []string{"endpoint"})
	p.fetchedPages = prom.NewCounterVec(prom.CounterOpts{
		Name: p.namespace + `_fetched_pages`,
		Help: "Number of pages fetched from the upstream API",
	}, []string{"endpoint"})
	p.rateLimitWaits = prom.NewCounterVec(prom.CounterOpts{
		Name: p.namespace + `_rate_limit_waits`,
		Help: "Number of cooldowns observed after an HTTP 429 response",
	}, []string{"endpoint"})
	p.pageFetchTime = prom.NewHistogramVec(prom.HistogramOpts{
		Name: p.namespace + `_page_fetch_duration_seconds`,
		Help: "The time taken to fetch one page from the upstream API",
	}, []string{"endpoint"})
	p.syncCompleted = prom.NewCounterVec(prom.CounterOpts{
		Name: p.namespace + `_sync_completed`,
		Help: "Number of sync runs finished, labelled with the terminal status",
	}, []string{"endpoint", "status", "workerID"})

	metrics := []prom.Collector{
		p.syncedRecords,
		p.skippedRecords,
		p.fetchedPages,
		p.rateLimitWaits,
		p.pageFetchTime,
		p.syncCompleted,
	}
	for _, metric := range metrics {
		err := prom.Register(metric)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *MonitoringService) Start() error {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		p.logger.Infof("Starting Prometheus listener on %s", p.listenAddress)
		err := http.ListenAndServe(p.listenAddress, nil)
		if err != nil {
			p.logger.Errorf("Error starting Prometheus metrics endpoint. %+v", err)
		}
		p.logger.Infof("Stopped metrics server")
	}()

	return nil
}

func (p *MonitoringService) Shutdown() {}

func (p *MonitoringService) IncrRecordsSynced(endpointKey string, count int) {
	p.syncedRecords.With(prom.Labels{"endpoint": endpointKey}).Add(float64(count))
}

func (p *MonitoringService) IncrRecordsSkipped(endpointKey string, count int) {
	p.skippedRecords.With(prom.Labels{"endpoint": endpointKey}).Add(float64(count))
}

func (p *MonitoringService) IncrPagesFetched(endpointKey string, count int) {
	p.fetchedPages.With(prom.Labels{"endpoint": endpointKey}).Add(float64(count))
}

func (p *MonitoringService) IncrRateLimitWaits(endpointKey string) {
	p.rateLimitWaits.With(prom.Labels{"endpoint": endpointKey}).Inc()
}

func (p *MonitoringService) RecordPageFetchTime(endpointKey string, millis float64) {
	p.pageFetchTime.With(prom.Labels{"endpoint": endpointKey}).Observe(millis / 1000)
}

func (p *MonitoringService) SyncCompleted(endpointKey string, status string) {
	p.syncCompleted.With(prom.Labels{"endpoint": endpointKey, "status": status, "workerID": p.workerID}).Inc()
}
