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

// Package fetch retrieves result pages from the openFDA API.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matryer/try"

	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/metrics"
	"github.com/openfda-labs/go-fda-connector/logger"
)

const (
	// Date filters are open ended towards the future.
	openEndedUpper = "99991231"
	dateFormat     = "20060102"
)

type (
	// PageRequest addresses one page of results by offset.
	PageRequest struct {
		Skip  int
		Limit int
	}

	// Page is one page of raw result items, undecoded.
	Page struct {
		Results []json.RawMessage
	}

	// TransientFetchError wraps upstream failures that the caller may
	// treat as retryable on the next run: network errors, server side
	// HTTP statuses and undecodable bodies.
	TransientFetchError struct {
		Op    string
		Cause error
	}

	// ErrRateLimitExhausted is returned when a rate limited request
	// still fails after the configured number of retries.
	ErrRateLimitExhausted struct {
		Attempts int
	}

	// Client fetches pages of a single endpoint.
	Client struct {
		descriptor *endpoints.Descriptor
		httpClient *http.Client
		baseURL    string
		apiKey     string
		search     string
		cooldown   time.Duration
		maxRetries int
		mService   metrics.MonitoringService
		log        logger.Logger
	}
)

// ErrNoResults reports a well-formed response that carried no result
// items. It marks normal end of data, not a failure.
var ErrNoResults = errors.New("response contains no results")

// errRateLimited flows inside the retry loop only.
var errRateLimited = errors.New("rate limited")

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch failure in %s: %v", e.Op, e.Cause)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Cause
}

func (e *ErrRateLimitExhausted) Error() string {
	return fmt.Sprintf("request still rate limited after %d attempts", e.Attempts)
}

// NewClient creates a page fetch client for the configured endpoint.
func NewClient(cfg *config.SyncConfiguration, descriptor *endpoints.Descriptor) *Client {
	mService := cfg.MonitoringService
	if mService == nil {
		mService = &metrics.NoopMonitoringService{}
	}

	return &Client{
		descriptor: descriptor,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		search:     searchFilter(descriptor, cfg.SinceDate),
		cooldown:   time.Duration(cfg.RateLimitCooldownMillis) * time.Millisecond,
		maxRetries: cfg.MaxRateLimitRetries,
		mService:   mService,
		log:        cfg.Logger,
	}
}

// searchFilter builds the openFDA search expression for the incremental
// date filter, for example "receivedate:[20200115 TO 99991231]".
// Endpoints without a date field or runs without a since date use none.
func searchFilter(descriptor *endpoints.Descriptor, since *time.Time) string {
	if descriptor.DateField == "" || since == nil {
		return ""
	}
	return fmt.Sprintf("%s:[%s TO %s]", descriptor.DateField, since.Format(dateFormat), openEndedUpper)
}

// GetPage fetches one page of results. A rate limited request is
// retried up to the configured number of attempts, sleeping the
// cooldown in between. Returns ErrNoResults when the upstream reports
// end of data.
func (c *Client) GetPage(ctx context.Context, request *PageRequest) (*Page, error) {
	var page *Page
	attempts := 0

	err := try.Do(func(attempt int) (bool, error) {
		attempts = attempt
		p, err := c.fetchPage(ctx, request)
		if err == nil {
			page = p
			return false, nil
		}
		if !errors.Is(err, errRateLimited) || attempt >= c.maxRetries {
			return false, err
		}

		c.log.Warnf("Rate limited fetching %v at skip %d, cooling down %v. Attempt %d of %d",
			c.descriptor.Key, request.Skip, c.cooldown, attempt, c.maxRetries)
		c.mService.IncrRateLimitWaits(c.descriptor.Key)

		select {
		case <-time.After(c.cooldown):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		return true, err
	})

	if err != nil {
		// Only rate limited requests ask for another attempt, so hitting
		// the try package's own cap also means the budget is spent.
		if errors.Is(err, errRateLimited) || try.IsMaxRetries(err) {
			return nil, &ErrRateLimitExhausted{Attempts: attempts}
		}
		return nil, err
	}
	return page, nil
}

func (c *Client) fetchPage(ctx context.Context, request *PageRequest) (*Page, error) {
	requestURL := c.buildURL(request)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &TransientFetchError{Op: "build request", Cause: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientFetchError{Op: "do request", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode == http.StatusNotFound:
		// openFDA answers 404 with a NOT_FOUND error body once the
		// offset runs past the last record.
		return nil, ErrNoResults
	case resp.StatusCode != http.StatusOK:
		return nil, &TransientFetchError{
			Op:    "do request",
			Cause: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientFetchError{Op: "read body", Cause: err}
	}

	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransientFetchError{Op: "decode body", Cause: err}
	}
	if len(envelope.Results) == 0 {
		return nil, ErrNoResults
	}

	c.mService.IncrPagesFetched(c.descriptor.Key, 1)
	c.mService.RecordPageFetchTime(c.descriptor.Key, float64(time.Since(start).Milliseconds()))

	return &Page{Results: envelope.Results}, nil
}

func (c *Client) buildURL(request *PageRequest) string {
	params := url.Values{}
	if c.search != "" {
		params.Set("search", c.search)
	}
	params.Set("limit", strconv.Itoa(request.Limit))
	params.Set("skip", strconv.Itoa(request.Skip))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return c.baseURL + c.descriptor.Path + "?" + params.Encode()
}
