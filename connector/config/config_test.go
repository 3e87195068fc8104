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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/logger"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewSyncConfig("fda-sync", endpoints.DrugAdverseEvents)

	assert.Equal(t, "fda-sync", cfg.ApplicationName)
	assert.Equal(t, endpoints.DrugAdverseEvents, cfg.EndpointKey)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultRequestTimeoutMillis, cfg.RequestTimeoutMillis)
	assert.Equal(t, DefaultRateLimitCooldownMillis, cfg.RateLimitCooldownMillis)
	assert.Equal(t, DefaultMaxRateLimitRetries, cfg.MaxRateLimitRetries)
	assert.Equal(t, DefaultInterPageDelayMillis, cfg.InterPageDelayMillis)
	assert.NotEmpty(t, cfg.WorkerID)
	assert.NotNil(t, cfg.Logger)
	assert.Nil(t, cfg.SinceDate)
	assert.Empty(t, cfg.APIKey)
}

func TestConfigSetters(t *testing.T) {
	since := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	log := logger.GetDefaultLogger()

	cfg := NewSyncConfig("fda-sync", endpoints.FoodRecalls).
		WithBaseURL("http://localhost:8080").
		WithAPIKey("secret").
		WithSinceDate(since).
		WithPageSize(250).
		WithRequestTimeoutMillis(5000).
		WithRateLimitCooldownMillis(100).
		WithMaxRateLimitRetries(7).
		WithInterPageDelayMillis(0).
		WithWorkerID("worker-1").
		WithLogger(log)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, since, *cfg.SinceDate)
	assert.Equal(t, 250, cfg.PageSize)
	assert.Equal(t, 5000, cfg.RequestTimeoutMillis)
	assert.Equal(t, 100, cfg.RateLimitCooldownMillis)
	assert.Equal(t, 7, cfg.MaxRateLimitRetries)
	assert.Equal(t, 0, cfg.InterPageDelayMillis)
	assert.Equal(t, "worker-1", cfg.WorkerID)
	assert.Equal(t, log, cfg.Logger)
}

func TestConfigPageSizeClamped(t *testing.T) {
	cfg := NewSyncConfig("fda-sync", endpoints.DrugLabels).WithPageSize(5000)
	assert.Equal(t, MaxPageSize, cfg.PageSize)
}

func TestConfigNegativeInterPageDelay(t *testing.T) {
	cfg := NewSyncConfig("fda-sync", endpoints.DrugRecalls).WithInterPageDelayMillis(-5)
	assert.Equal(t, 0, cfg.InterPageDelayMillis)
}

func TestEmptyEndpointKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()

	NewSyncConfig("fda-sync", "")
}

func TestConfigNilLogger(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()

	NewSyncConfig("fda-sync", endpoints.DrugAdverseEvents).WithLogger(nil)
}
