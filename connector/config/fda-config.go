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

// Package config describes the configuration of an openFDA sync run.
package config

import (
	"time"

	"github.com/openfda-labs/go-fda-connector/connector/metrics"
	"github.com/openfda-labs/go-fda-connector/connector/utils"
	"github.com/openfda-labs/go-fda-connector/logger"
)

// NewSyncConfig creates a SyncConfiguration with default values for the
// given application and endpoint key.
func NewSyncConfig(applicationName, endpointKey string) *SyncConfiguration {
	checkIsValueNotEmpty("ApplicationName", applicationName)
	checkIsValueNotEmpty("EndpointKey", endpointKey)

	return &SyncConfiguration{
		ApplicationName:         applicationName,
		EndpointKey:             endpointKey,
		BaseURL:                 DefaultBaseURL,
		PageSize:                DefaultPageSize,
		RequestTimeoutMillis:    DefaultRequestTimeoutMillis,
		RateLimitCooldownMillis: DefaultRateLimitCooldownMillis,
		MaxRateLimitRetries:     DefaultMaxRateLimitRetries,
		InterPageDelayMillis:    DefaultInterPageDelayMillis,
		WorkerID:                utils.MustNewUUID(),
		Logger:                  logger.GetDefaultLogger(),
	}
}

// WithBaseURL overrides the upstream API root.
func (c *SyncConfiguration) WithBaseURL(baseURL string) *SyncConfiguration {
	checkIsValueNotEmpty("BaseURL", baseURL)
	c.BaseURL = baseURL
	return c
}

// WithAPIKey attaches an openFDA API key to every request.
func (c *SyncConfiguration) WithAPIKey(apiKey string) *SyncConfiguration {
	c.APIKey = apiKey
	return c
}

// WithSinceDate restricts the sync to records dated on or after the
// given date. Endpoints without a date field ignore it.
func (c *SyncConfiguration) WithSinceDate(since time.Time) *SyncConfiguration {
	c.SinceDate = &since
	return c
}

// WithPageSize sets the number of records per page. Values above
// MaxPageSize are clamped silently.
func (c *SyncConfiguration) WithPageSize(pageSize int) *SyncConfiguration {
	checkIsValuePositive("PageSize", pageSize)
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	c.PageSize = pageSize
	return c
}

// WithRequestTimeoutMillis sets the per request timeout.
func (c *SyncConfiguration) WithRequestTimeoutMillis(millis int) *SyncConfiguration {
	checkIsValuePositive("RequestTimeoutMillis", millis)
	c.RequestTimeoutMillis = millis
	return c
}

// WithRateLimitCooldownMillis sets the sleep before retrying a rate
// limited request.
func (c *SyncConfiguration) WithRateLimitCooldownMillis(millis int) *SyncConfiguration {
	checkIsValuePositive("RateLimitCooldownMillis", millis)
	c.RateLimitCooldownMillis = millis
	return c
}

// WithMaxRateLimitRetries caps the retries of a rate limited request.
func (c *SyncConfiguration) WithMaxRateLimitRetries(retries int) *SyncConfiguration {
	checkIsValuePositive("MaxRateLimitRetries", retries)
	c.MaxRateLimitRetries = retries
	return c
}

// WithInterPageDelayMillis sets the courtesy delay between page fetches.
// Zero disables the delay.
func (c *SyncConfiguration) WithInterPageDelayMillis(millis int) *SyncConfiguration {
	if millis < 0 {
		millis = 0
	}
	c.InterPageDelayMillis = millis
	return c
}

// WithWorkerID overrides the generated worker identifier.
func (c *SyncConfiguration) WithWorkerID(workerID string) *SyncConfiguration {
	checkIsValueNotEmpty("WorkerID", workerID)
	c.WorkerID = workerID
	return c
}

// WithLogger sets a custom logger.
func (c *SyncConfiguration) WithLogger(logger logger.Logger) *SyncConfiguration {
	if logger == nil {
		// There is no point to continue with nil logger. Fail fast!
		panic("logger cannot be null")
	}
	c.Logger = logger
	return c
}

// WithMonitoringService sets the metrics backend for the sync run.
func (c *SyncConfiguration) WithMonitoringService(mService metrics.MonitoringService) *SyncConfiguration {
	c.MonitoringService = mService
	return c
}
