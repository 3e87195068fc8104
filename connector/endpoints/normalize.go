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
package endpoints

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListSeparator joins flattened array values in a normalized record.
const ListSeparator = ", "

// FetchedAtColumn is added to every record with the normalization timestamp.
const FetchedAtColumn = "fetched_at"

// decodeItem unmarshals one raw upstream item into a generic document.
// A raw item that is not a JSON object is malformed.
func decodeItem(raw json.RawMessage) (map[string]interface{}, error) {
	var item map[string]interface{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("item is not a JSON object: %w", err)
	}
	return item, nil
}

// requireString extracts a mandatory scalar field, typically the primary key.
// Missing or empty values make the whole item malformed.
func requireString(item map[string]interface{}, key string) (string, error) {
	value := getString(item, key)
	if value == "" {
		return "", fmt.Errorf("missing required field %q", key)
	}
	return value, nil
}

// getString extracts a scalar field as a string, with "" for absent values.
// Upstream is inconsistent about numeric vs string encoding for flag fields,
// so numbers are rendered to their string form.
func getString(item map[string]interface{}, key string) string {
	switch value := item[key].(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}

// getFloat extracts a numeric field. Upstream often encodes numbers as
// strings ("patientonsetage": "63"). Returns nil when absent or unparseable.
func getFloat(item map[string]interface{}, key string) interface{} {
	switch value := item[key].(type) {
	case float64:
		return value
	case string:
		if value == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return parsed
	default:
		return nil
	}
}

// getMap extracts a nested object field, with an empty map for absent values.
func getMap(item map[string]interface{}, key string) map[string]interface{} {
	if value, ok := item[key].(map[string]interface{}); ok {
		return value
	}
	return map[string]interface{}{}
}

// getSlice extracts an array field, with nil for absent values.
func getSlice(item map[string]interface{}, key string) []interface{} {
	if value, ok := item[key].([]interface{}); ok {
		return value
	}
	return nil
}

// joinStrings flattens an array of scalars to one delimited string.
func joinStrings(values []interface{}) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok {
			parts = append(parts, s)
		} else if value != nil {
			parts = append(parts, fmt.Sprint(value))
		}
	}
	return strings.Join(parts, ListSeparator)
}

// joinField flattens an array of objects to one delimited string built from
// the named field of each element. Elements without the field contribute an
// empty part, preserving the element count like the source API does.
func joinField(values []interface{}, key string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if obj, ok := value.(map[string]interface{}); ok {
			parts = append(parts, getString(obj, key))
		}
	}
	return strings.Join(parts, ListSeparator)
}

// joinWith flattens an array of scalars with a custom separator. Narrative
// label sections come as arrays of paragraphs and are joined with a space.
func joinWith(values []interface{}, sep string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

// timestamp renders the fetched-at value the way the sink expects it.
func timestamp(fetchedAt time.Time) string {
	return fetchedAt.UTC().Format(time.RFC3339)
}
