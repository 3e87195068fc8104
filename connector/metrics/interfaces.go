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

// Package metrics defines the monitoring service contract used to publish
// per sync-run metrics.
package metrics

// MonitoringService publishes connector-scoped metrics.
type MonitoringService interface {
	Init(appName, endpointKey, workerID string) error
	Start() error
	IncrRecordsSynced(string, int)
	IncrRecordsSkipped(string, int)
	IncrPagesFetched(string, int)
	IncrRateLimitWaits(string)
	RecordPageFetchTime(string, float64)
	SyncCompleted(string, string)
	Shutdown()
}

// NoopMonitoringService implements MonitoringService by doing nothing.
type NoopMonitoringService struct{}

func (NoopMonitoringService) Init(appName, endpointKey, workerID string) error { return nil }
func (NoopMonitoringService) Start() error                                     { return nil }
func (NoopMonitoringService) Shutdown()                                        {}

func (NoopMonitoringService) IncrRecordsSynced(endpointKey string, count int)        {}
func (NoopMonitoringService) IncrRecordsSkipped(endpointKey string, count int)       {}
func (NoopMonitoringService) IncrPagesFetched(endpointKey string, count int)         {}
func (NoopMonitoringService) IncrRateLimitWaits(endpointKey string)                  {}
func (NoopMonitoringService) RecordPageFetchTime(endpointKey string, millis float64) {}
func (NoopMonitoringService) SyncCompleted(endpointKey string, status string)        {}
