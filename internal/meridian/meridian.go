// Package meridian shapes fetched marketing data into the dataset layout
// a marketing mix model expects: a date axis, a target KPI series, and
// per-channel media series.
package meridian

import (
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/marketing-reports/internal/model"
)

// kpiCandidates are the column names tried, in order, when no target
// column is configured.
var kpiCandidates = []string{"revenue", "sales", "conversions", "kpi", "target"}

// mediaHints mark a numeric column as media spend when its name contains
// one of them.
var mediaHints = []string{"spend", "media", "cost", "budget"}

// Options configures a processing run. Zero values mean "guess".
type Options struct {
	DateColumn     string
	TargetColumn   string
	ChannelColumns []string
	ControlColumns []string
	Weekly         bool // aggregate daily rows into Monday-keyed weeks
}

// Dataset is the processed, model-ready data.
type Dataset struct {
	Dates    []string             `json:"dates"`
	KPI      []float64            `json:"kpi"`
	Media    map[string][]float64 `json:"media"`
	Controls map[string][]float64 `json:"controls,omitempty"`
	Metadata Metadata             `json:"metadata"`
}

// Metadata describes how the dataset was derived.
type Metadata struct {
	DateRange      DateRange `json:"date_range"`
	TargetColumn   string    `json:"target_column"`
	ChannelColumns []string  `json:"channel_columns"`
	ControlColumns []string  `json:"control_columns"`
	RowCount       int       `json:"row_count"`
}

// DateRange is the inclusive span of the date axis.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Process converts raw records into a dataset. Records are sorted by the
// date column; the target KPI is guessed from common names when unset;
// media columns are guessed from numeric columns whose names hint at
// spend.
func Process(records []model.ConversionRecord, opts Options) (*Dataset, error) {
	if len(records) == 0 {
		return nil, eris.New("meridian: no records to process")
	}

	dateCol := opts.DateColumn
	if dateCol == "" {
		dateCol = "date"
	}

	rows, err := sortByDate(records, dateCol)
	if err != nil {
		return nil, err
	}

	target := opts.TargetColumn
	if target == "" {
		target = guessTarget(rows[0].rec)
	}
	if target == "" || !hasColumn(rows[0].rec, target) {
		return nil, eris.New("meridian: target KPI column not found or specified")
	}

	channels := opts.ChannelColumns
	if len(channels) == 0 {
		channels = guessChannels(rows[0].rec, dateCol, target, opts.ControlColumns)
	}
	channels = presentColumns(rows[0].rec, channels)
	if len(channels) == 0 {
		return nil, eris.New("meridian: no media channel columns found or specified")
	}
	controls := presentColumns(rows[0].rec, opts.ControlColumns)

	if opts.Weekly {
		rows = aggregateWeekly(rows, target, channels, controls)
	}

	ds := &Dataset{
		Dates: make([]string, len(rows)),
		KPI:   make([]float64, len(rows)),
		Media: make(map[string][]float64, len(channels)),
	}
	for _, ch := range channels {
		ds.Media[ch] = make([]float64, len(rows))
	}
	if len(controls) > 0 {
		ds.Controls = make(map[string][]float64, len(controls))
		for _, c := range controls {
			ds.Controls[c] = make([]float64, len(rows))
		}
	}

	for i, row := range rows {
		ds.Dates[i] = row.date.Format("2006-01-02")
		v, _ := row.rec.MetricValue(target)
		ds.KPI[i] = v
		for _, ch := range channels {
			m, _ := row.rec.MetricValue(ch)
			ds.Media[ch][i] = m
		}
		for _, c := range controls {
			m, _ := row.rec.MetricValue(c)
			ds.Controls[c][i] = m
		}
	}

	ds.Metadata = Metadata{
		DateRange:      DateRange{Start: ds.Dates[0], End: ds.Dates[len(ds.Dates)-1]},
		TargetColumn:   target,
		ChannelColumns: channels,
		ControlColumns: controls,
		RowCount:       len(rows),
	}
	return ds, nil
}

type datedRow struct {
	date time.Time
	rec  model.ConversionRecord
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func sortByDate(records []model.ConversionRecord, dateCol string) ([]datedRow, error) {
	rows := make([]datedRow, 0, len(records))
	for _, rec := range records {
		t, ok := parseDate(rec[dateCol])
		if !ok {
			return nil, eris.Errorf("meridian: record missing parseable date column %q", dateCol)
		}
		rows = append(rows, datedRow{date: t, rec: rec})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	return rows, nil
}

func guessTarget(rec model.ConversionRecord) string {
	for _, cand := range kpiCandidates {
		for col := range rec {
			if strings.EqualFold(col, cand) {
				return col
			}
		}
	}
	return ""
}

// guessChannels picks numeric columns that look like media spend. If no
// name carries a spend hint, every numeric column except the date,
// target, and controls qualifies.
func guessChannels(rec model.ConversionRecord, dateCol, target string, controls []string) []string {
	excluded := map[string]bool{dateCol: true, target: true}
	for _, c := range controls {
		excluded[c] = true
	}

	var hinted, numeric []string
	for col := range rec {
		if excluded[col] || strings.Contains(strings.ToLower(col), "date") {
			continue
		}
		if _, ok := rec.MetricValue(col); !ok {
			continue
		}
		numeric = append(numeric, col)
		lower := strings.ToLower(col)
		for _, hint := range mediaHints {
			if strings.Contains(lower, hint) {
				hinted = append(hinted, col)
				break
			}
		}
	}

	out := hinted
	if len(out) == 0 {
		out = numeric
	}
	sort.Strings(out)
	return out
}

func hasColumn(rec model.ConversionRecord, col string) bool {
	_, ok := rec[col]
	return ok
}

func presentColumns(rec model.ConversionRecord, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if hasColumn(rec, c) {
			out = append(out, c)
		}
	}
	return out
}

// aggregateWeekly sums rows into Monday-keyed weekly buckets, keeping
// chronological order.
func aggregateWeekly(rows []datedRow, target string, channels, controls []string) []datedRow {
	sums := map[time.Time]model.ConversionRecord{}
	var order []time.Time

	cols := append(append([]string{target}, channels...), controls...)
	for _, row := range rows {
		wk := weekStart(row.date)
		bucket, ok := sums[wk]
		if !ok {
			bucket = model.ConversionRecord{}
			sums[wk] = bucket
			order = append(order, wk)
		}
		for _, col := range cols {
			v, _ := row.rec.MetricValue(col)
			prev, _ := bucket.MetricValue(col)
			bucket[col] = prev + v
		}
	}

	out := make([]datedRow, 0, len(order))
	for _, wk := range order {
		out = append(out, datedRow{date: wk, rec: sums[wk]})
	}
	return out
}

func weekStart(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
