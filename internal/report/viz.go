package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/marketing-reports/internal/model"
)

// FindColumn returns the first column whose name contains any of the
// given substrings, case-insensitively. Empty when none match.
func FindColumn(columns []string, substrings ...string) string {
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, sub := range substrings {
			if strings.Contains(lower, strings.ToLower(sub)) {
				return col
			}
		}
	}
	return ""
}

// BuildVisualizations extracts chart-ready data from fetched results.
// Performance reports get a bar chart per metric keyed by channel plus a
// line chart per metric keyed by date; attribution reports get a pie
// chart of channel contribution. Sources without matching columns are
// skipped; the result is never an error, at worst an empty list.
func BuildVisualizations(results []model.FetchResult, reportType string, metrics []string) []model.Visualization {
	var viz []model.Visualization
	for _, fr := range results {
		if fr.Data == nil || len(fr.Data.Rows) == 0 {
			continue
		}
		switch reportType {
		case "attribution":
			if v := attributionViz(fr); v != nil {
				viz = append(viz, *v)
			}
		default:
			viz = append(viz, performanceViz(fr, metrics)...)
		}
	}
	return viz
}

func performanceViz(fr model.FetchResult, metrics []string) []model.Visualization {
	var out []model.Visualization
	channelCol := FindColumn(fr.Data.Columns, "channel")
	dateCol := FindColumn(fr.Data.Columns, "date")

	if channelCol != "" {
		for _, metric := range metrics {
			metricCol := FindColumn(fr.Data.Columns, metric)
			if metricCol == "" {
				continue
			}
			labels, values := columnPair(fr.Data.Rows, channelCol, metricCol)
			out = append(out, model.Visualization{
				Title:  fmt.Sprintf("%s by Channel", metric),
				Type:   model.VizBar,
				Source: fr.Source,
				Labels: labels,
				Series: []model.Series{{Name: metricCol, Values: values}},
			})
		}
	}

	if dateCol != "" {
		for _, metric := range metrics {
			metricCol := FindColumn(fr.Data.Columns, metric)
			if metricCol == "" {
				continue
			}
			labels, values := columnPair(fr.Data.Rows, dateCol, metricCol)
			out = append(out, model.Visualization{
				Title:  fmt.Sprintf("%s Over Time", metric),
				Type:   model.VizLine,
				Source: fr.Source,
				Labels: labels,
				Series: []model.Series{{Name: metricCol, Values: values}},
			})
		}
	}
	return out
}

func attributionViz(fr model.FetchResult) *model.Visualization {
	channelCol := FindColumn(fr.Data.Columns, "channel")
	contributionCol := FindColumn(fr.Data.Columns, "contribution", "attribution")
	if channelCol == "" || contributionCol == "" {
		return nil
	}
	labels, values := columnPair(fr.Data.Rows, channelCol, contributionCol)
	return &model.Visualization{
		Title:  "Channel Attribution",
		Type:   model.VizPie,
		Source: fr.Source,
		Labels: labels,
		Series: []model.Series{{Name: contributionCol, Values: values}},
	}
}

// columnPair extracts aligned label/value slices from rows. Rows where
// the value column is missing or non-numeric contribute a zero so labels
// and values stay in step.
func columnPair(rows []model.ConversionRecord, labelCol, valueCol string) ([]string, []float64) {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, fmt.Sprintf("%v", row[labelCol]))
		v, _ := row.MetricValue(valueCol)
		values = append(values, v)
	}
	return labels, values
}
