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

var drugLabelsDescriptor = &Descriptor{
	Key:  DrugLabels,
	Path: "/drug/label.json",
	// Label documents carry effective_time but the endpoint exposes no
	// stable receive date to filter on; since-date is ignored for labels.
	DateField: "",
	Schema: Schema{
		Table:      "fda_drug_labels",
		PrimaryKey: []string{"id"},
		Columns: map[string]ColumnType{
			"id":                        ColumnString,
			"effective_time":            ColumnString,
			"product_name":              ColumnString,
			"generic_name":              ColumnString,
			"manufacturer":              ColumnString,
			"indications_and_usage":     ColumnString,
			"warnings":                  ColumnString,
			"dosage_and_administration": ColumnString,
			FetchedAtColumn:             ColumnTimestamp,
		},
	},
	Normalize: normalizeDrugLabel,
}

func normalizeDrugLabel(raw json.RawMessage, fetchedAt time.Time) (Record, error) {
	item, err := decodeItem(raw)
	if err != nil {
		return nil, err
	}

	id, err := requireString(item, "id")
	if err != nil {
		return nil, err
	}

	openfda := getMap(item, "openfda")

	return Record{
		"id":                        id,
		"effective_time":            getString(item, "effective_time"),
		"product_name":              joinStrings(getSlice(openfda, "brand_name")),
		"generic_name":              joinStrings(getSlice(openfda, "generic_name")),
		"manufacturer":              joinStrings(getSlice(openfda, "manufacturer_name")),
		"indications_and_usage":     joinWith(getSlice(item, "indications_and_usage"), " "),
		"warnings":                  joinWith(getSlice(item, "warnings"), " "),
		"dosage_and_administration": joinWith(getSlice(item, "dosage_and_administration"), " "),
		FetchedAtColumn:             timestamp(fetchedAt),
	}, nil
}
