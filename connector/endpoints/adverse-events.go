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

var drugAdverseEventsDescriptor = &Descriptor{
	Key:       DrugAdverseEvents,
	Path:      "/drug/event.json",
	DateField: "receivedate",
	Schema: Schema{
		Table:      "fda_drug_adverse_events",
		PrimaryKey: []string{"safetyreportid"},
		Columns: map[string]ColumnType{
			"safetyreportid":          ColumnString,
			"receivedate":             ColumnString,
			"patient_age":             ColumnFloat,
			"patient_sex":             ColumnString,
			"serious":                 ColumnString,
			"serious_death":           ColumnString,
			"serious_hospitalization": ColumnString,
			"drug_names":              ColumnString,
			"reactions":               ColumnString,
			FetchedAtColumn:           ColumnTimestamp,
		},
	},
	Normalize: normalizeDrugAdverseEvent,
}

var deviceAdverseEventsDescriptor = &Descriptor{
	Key:  DeviceAdverseEvents,
	Path: "/device/event.json",
	// The device endpoint filters on the same receive date field as the
	// drug endpoint even though records carry date_received.
	DateField: "receivedate",
	Schema: Schema{
		Table:      "fda_device_adverse_events",
		PrimaryKey: []string{"mdr_report_key"},
		Columns: map[string]ColumnType{
			"mdr_report_key":     ColumnString,
			"report_number":      ColumnString,
			"date_received":      ColumnString,
			"device_name":        ColumnString,
			"manufacturer":       ColumnString,
			"event_type":         ColumnString,
			"adverse_event_flag": ColumnString,
			"patient_problem":    ColumnString,
			FetchedAtColumn:      ColumnTimestamp,
		},
	},
	Normalize: normalizeDeviceAdverseEvent,
}

func normalizeDrugAdverseEvent(raw json.RawMessage, fetchedAt time.Time) (Record, error) {
	item, err := decodeItem(raw)
	if err != nil {
		return nil, err
	}

	reportID, err := requireString(item, "safetyreportid")
	if err != nil {
		return nil, err
	}

	patient := getMap(item, "patient")

	return Record{
		"safetyreportid":          reportID,
		"receivedate":             getString(item, "receivedate"),
		"patient_age":             getFloat(patient, "patientonsetage"),
		"patient_sex":             getString(patient, "patientsex"),
		"serious":                 getString(item, "serious"),
		"serious_death":           getString(item, "seriousnessdeath"),
		"serious_hospitalization": getString(item, "seriousnesshospitalization"),
		"drug_names":              joinField(getSlice(patient, "drug"), "medicinalproduct"),
		"reactions":               joinField(getSlice(patient, "reaction"), "reactionmeddrapt"),
		FetchedAtColumn:           timestamp(fetchedAt),
	}, nil
}

func normalizeDeviceAdverseEvent(raw json.RawMessage, fetchedAt time.Time) (Record, error) {
	item, err := decodeItem(raw)
	if err != nil {
		return nil, err
	}

	reportKey, err := requireString(item, "mdr_report_key")
	if err != nil {
		return nil, err
	}

	// Only the first device entry is projected into the flat record.
	var deviceName, manufacturer string
	if devices := getSlice(item, "device"); len(devices) > 0 {
		if device, ok := devices[0].(map[string]interface{}); ok {
			deviceName = getString(device, "generic_name")
			manufacturer = getString(device, "manufacturer_d_name")
		}
	}

	return Record{
		"mdr_report_key":     reportKey,
		"report_number":      getString(item, "report_number"),
		"date_received":      getString(item, "date_received"),
		"device_name":        deviceName,
		"manufacturer":       manufacturer,
		"event_type":         getString(item, "event_type"),
		"adverse_event_flag": getString(item, "adverse_event_flag"),
		"patient_problem":    joinField(getSlice(item, "patient"), "patient_problem_code"),
		FetchedAtColumn:      timestamp(fetchedAt),
	}, nil
}
