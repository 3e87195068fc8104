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
package config

import (
	"log"
	"strings"
	"time"

	"github.com/openfda-labs/go-fda-connector/connector/metrics"
	"github.com/openfda-labs/go-fda-connector/logger"
)

const (
	// DefaultBaseURL is the openFDA API root.
	DefaultBaseURL = "https://api.fda.gov"

	// DefaultPageSize is the number of records requested per page.
	DefaultPageSize = 100

	// MaxPageSize is the upstream-imposed maximum for the limit parameter.
	// Larger configured values are clamped, not rejected.
	MaxPageSize = 1000

	// RequestTimeout bounds a single page fetch including the response body read.
	DefaultRequestTimeoutMillis = 30000

	// Cooldown slept after an HTTP 429 before the request is retried.
	DefaultRateLimitCooldownMillis = 60000

	// Max retries of a rate limited request before the sync run aborts
	// with RATE_LIMIT_EXHAUSTED.
	DefaultMaxRateLimitRetries = 3

	// Courtesy delay between successive page fetches.
	DefaultInterPageDelayMillis = 500
)

type (
	// SyncConfiguration configures one incremental sync of a single
	// openFDA endpoint. Construct it with NewSyncConfig and refine it
	// with the With* setters.
	SyncConfiguration struct {
		// ApplicationName is the name of the consuming application. It
		// prefixes metric names.
		ApplicationName string

		// EndpointKey selects the endpoint descriptor to sync. Must be
		// one of the keys in the endpoints package registry; validated
		// when the syncer is constructed.
		EndpointKey string

		// BaseURL is an optional override of the upstream API root,
		// mainly used to point tests at a fake server.
		BaseURL string

		// APIKey is the optional openFDA API key, forwarded on every
		// request when present. No other credential handling is done.
		APIKey string

		// SinceDate restricts results to items whose endpoint specific
		// date field is on or after this date. The upper bound is open
		// ended. Nil disables the filter.
		SinceDate *time.Time

		// PageSize is the number of records per request, clamped to
		// MaxPageSize.
		PageSize int

		// RequestTimeoutMillis bounds each HTTP request.
		RequestTimeoutMillis int

		// RateLimitCooldownMillis is slept before retrying a rate
		// limited request.
		RateLimitCooldownMillis int

		// MaxRateLimitRetries caps how often one request is retried
		// after a 429 before the run aborts.
		MaxRateLimitRetries int

		// InterPageDelayMillis is the courtesy delay between pages.
		InterPageDelayMillis int

		// WorkerID distinguishes workers of the same application.
		WorkerID string

		// Logger used to log messages.
		Logger logger.Logger

		// MonitoringService publishes per sync-run metrics.
		MonitoringService metrics.MonitoringService
	}
)

func empty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// checkIsValueNotEmpty makes sure the value is not empty.
func checkIsValueNotEmpty(key string, value string) {
	if empty(value) {
		// There is no point to continue for incorrect configuration. Fail fast!
		log.Panicf("Non-empty value expected for %v, actual: %v", key, value)
	}
}

// checkIsValuePositive makes sure the value is positive.
func checkIsValuePositive(key string, value int) {
	if value <= 0 {
		// There is no point to continue for incorrect configuration. Fail fast!
		log.Panicf("Positive value expected for %v, actual: %v", key, value)
	}
}
