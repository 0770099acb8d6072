package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalMetric(t *testing.T) {
	req := AttributionRequest{
		ConversionMetric: "revenue",
		Data: []ConversionRecord{
			{"revenue": 100.5, "channel": "Search"},
			{"revenue": 49.5},
			{"channel": "Email"}, // no metric field
		},
	}
	assert.InDelta(t, 150.0, req.TotalMetric(), 1e-9)
}

func TestTotalMetricAbsentField(t *testing.T) {
	req := AttributionRequest{
		ConversionMetric: "conversions",
		Data:             []ConversionRecord{{"clicks": 10}, {"clicks": 20}},
	}
	assert.Equal(t, 0.0, req.TotalMetric())
}

func TestTotalMetricCoercion(t *testing.T) {
	req := AttributionRequest{
		ConversionMetric: "v",
		Data: []ConversionRecord{
			{"v": 1},                   // int
			{"v": int64(2)},            // int64
			{"v": "3.5"},               // numeric string
			{"v": json.Number("4.5")},  // json.Number
			{"v": "not a number"},      // ignored
			{"v": map[string]any{}},    // ignored
			{"v": float32(1.0)},        // float32
		},
	}
	assert.InDelta(t, 12.0, req.TotalMetric(), 1e-9)
}

func TestAttributionRequestValidate(t *testing.T) {
	req := AttributionRequest{ConversionMetric: "revenue"}
	require.Error(t, req.Validate())

	req.Channels = []string{"Search"}
	require.NoError(t, req.Validate())

	req.ConversionMetric = ""
	require.Error(t, req.Validate())
}

func TestSourceDescriptorValidate(t *testing.T) {
	cases := []struct {
		name    string
		desc    SourceDescriptor
		wantErr bool
	}{
		{"bigquery ok", SourceDescriptor{Type: SourceBigQuery, Query: "SELECT 1"}, false},
		{"bigquery missing query", SourceDescriptor{Type: SourceBigQuery}, true},
		{"spreadsheet ok", SourceDescriptor{Type: SourceSpreadsheet, SpreadsheetID: "abc", SheetName: "Data"}, false},
		{"spreadsheet local file", SourceDescriptor{Type: SourceSpreadsheet, Path: "data.xlsx"}, false},
		{"spreadsheet missing id", SourceDescriptor{Type: SourceSpreadsheet}, true},
		{"database ok", SourceDescriptor{Type: SourceDatabase, Query: "SELECT 1"}, false},
		{"file ok", SourceDescriptor{Type: SourceFile, Path: "x.csv"}, false},
		{"file missing path", SourceDescriptor{Type: SourceFile}, true},
		{"unknown type", SourceDescriptor{Type: "kafka"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.desc.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSourceDescriptorKey(t *testing.T) {
	assert.Equal(t, "warehouse", SourceDescriptor{Type: SourceBigQuery, ID: "warehouse"}.Key())
	assert.Equal(t, "bigquery", SourceDescriptor{Type: SourceBigQuery}.Key())
}
