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
	"time"
)

var foodRecallsDescriptor = &Descriptor{
	Key:       FoodRecalls,
	Path:      "/food/enforcement.json",
	DateField: "report_date",
	Schema: Schema{
		Table:      "fda_food_recalls",
		PrimaryKey: []string{"recall_number"},
		Columns: map[string]ColumnType{
			"recall_number":        ColumnString,
			"report_date":          ColumnString,
			"product_description":  ColumnString,
			"reason_for_recall":    ColumnString,
			"company_name":         ColumnString,
			"classification":       ColumnString,
			"status":               ColumnString,
			"distribution_pattern": ColumnString,
			FetchedAtColumn:        ColumnTimestamp,
		},
	},
	Normalize: normalizeFoodRecall,
}

var drugRecallsDescriptor = &Descriptor{
	Key:       DrugRecalls,
	Path:      "/drug/enforcement.json",
	DateField: "report_date",
	Schema: Schema{
		Table:      "fda_drug_recalls",
		PrimaryKey: []string{"recall_number"},
		Columns: map[string]ColumnType{
			"recall_number":       ColumnString,
			"report_date":         ColumnString,
			"product_description": ColumnString,
			"reason_for_recall":   ColumnString,
			"company_name":        ColumnString,
			"classification":      ColumnString,
			"status":              ColumnString,
			FetchedAtColumn:       ColumnTimestamp,
		},
	},
	Normalize: normalizeDrugRecall,
}

// normalizeEnforcement holds the shared mapping of both enforcement feeds.
func normalizeEnforcement(raw json.RawMessage, fetchedAt time.Time) (map[string]interface{}, Record, error) {
	item, err := decodeItem(raw)
	if err != nil {
		return nil, nil, err
	}

	recallNumber, err := requireString(item, "recall_number")
	if err != nil {
		return nil, nil, err
	}

	record := Record{
		"recall_number":       recallNumber,
		"report_date":         getString(item, "report_date"),
		"product_description": getString(item, "product_description"),
		"reason_for_recall":   getString(item, "reason_for_recall"),
		"company_name":        getString(item, "recalling_firm"),
		"classification":      getString(item, "classification"),
		"status":              getString(item, "status"),
		FetchedAtColumn:       timestamp(fetchedAt),
	}
	return item, record, nil
}

func normalizeFoodRecall(raw json.RawMessage, fetchedAt time.Time) (Record, error) {
	item, record, err := normalizeEnforcement(raw, fetchedAt)
	if err != nil {
		return nil, err
	}
	record["distribution_pattern"] = getString(item, "distribution_pattern")
	return record, nil
}

func normalizeDrugRecall(raw json.RawMessage, fetchedAt time.Time) (Record, error) {
	_, record, err := normalizeEnforcement(raw, fetchedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}
