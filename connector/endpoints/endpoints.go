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

// Package endpoints holds the static descriptor table for the supported
// openFDA endpoints. Each descriptor maps a logical endpoint key to the
// upstream path, the field used for date range filtering, the destination
// schema and a pure normalization function. The descriptor is selected once
// at configuration time; there is no per-record dispatch on the key.
package endpoints

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Endpoint keys of the supported sources.
const (
	DrugAdverseEvents   = "drug_adverse_events"
	DrugLabels          = "drug_labels"
	DeviceAdverseEvents = "device_adverse_events"
	FoodRecalls         = "food_recalls"
	DrugRecalls         = "drug_recalls"
)

// Destination column types understood by the sink.
const (
	ColumnString    ColumnType = "STRING"
	ColumnFloat     ColumnType = "FLOAT"
	ColumnTimestamp ColumnType = "TIMESTAMP"
)

type (
	// ColumnType names the destination type of one schema column.
	ColumnType string

	// Record is one flat normalized record. Values are scalars; arrays in
	// the raw item have been flattened to delimited strings.
	Record map[string]interface{}

	// Schema describes the destination table provisioned by the sink.
	Schema struct {
		Table      string
		PrimaryKey []string
		Columns    map[string]ColumnType
	}

	// NormalizeFunc maps one raw upstream item to one flat Record.
	// A non-nil error means the item is malformed and must be skipped;
	// it never aborts the page.
	NormalizeFunc func(raw json.RawMessage, fetchedAt time.Time) (Record, error)

	// Descriptor is the static per-endpoint mapping. Immutable after
	// construction; one per supported source.
	Descriptor struct {
		// Key is the logical endpoint key selected by the configuration.
		Key string

		// Path is the upstream request path, e.g. /drug/event.json.
		Path string

		// DateField is the endpoint specific field used for the since-date
		// search filter. Empty when the endpoint does not support one.
		DateField string

		Schema Schema

		Normalize NormalizeFunc
	}
)

// ErrUnknownEndpoint is returned when the configured endpoint key does not
// match any descriptor. It is fatal and surfaced before any fetch.
type ErrUnknownEndpoint struct {
	Key string
}

func (e ErrUnknownEndpoint) Error() string {
	return fmt.Sprintf("unknown endpoint key: %q, choose from: %s", e.Key, strings.Join(Keys(), ", "))
}

var registry = map[string]*Descriptor{
	DrugAdverseEvents:   drugAdverseEventsDescriptor,
	DrugLabels:          drugLabelsDescriptor,
	DeviceAdverseEvents: deviceAdverseEventsDescriptor,
	FoodRecalls:         foodRecallsDescriptor,
	DrugRecalls:         drugRecallsDescriptor,
}

// Get returns the descriptor registered for key.
func Get(key string) (*Descriptor, error) {
	desc, ok := registry[key]
	if !ok {
		return nil, ErrUnknownEndpoint{Key: key}
	}
	return desc, nil
}

// Keys lists the supported endpoint keys in stable order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// DescribeSchema returns the destination schema for the endpoint. It is a
// pure function of configuration, used by the sink to provision storage.
func DescribeSchema(key string) (*Schema, error) {
	desc, err := Get(key)
	if err != nil {
		return nil, err
	}
	schema := desc.Schema
	return &schema, nil
}
