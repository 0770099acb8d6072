package model

// TabularResult is the normalized shape every data source connector
// returns: named columns and row maps keyed by column name. Native values
// are normalized during fetch (dates to RFC 3339 strings, byte slices to
// strings, nested records flattened).
type TabularResult struct {
	Columns        []string           `json:"columns"`
	Rows           []ConversionRecord `json:"rows"`
	RowCount       int                `json:"row_count"`
	BytesProcessed int64              `json:"bytes_processed,omitempty"`
}

// Column returns the values of one column as raw values, in row order.
func (t *TabularResult) Column(name string) []any {
	out := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[name])
	}
	return out
}

// FetchResult pairs a source key with either its data or its error.
// Per-source failures are captured here rather than aborting a
// multi-source fetch.
type FetchResult struct {
	Source string         `json:"source"`
	Data   *TabularResult `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}
