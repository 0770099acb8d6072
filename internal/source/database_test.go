package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/config"
)

func TestSQLiteSourceQuery(t *testing.T) {
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	_, err = src.db.ExecContext(ctx, `CREATE TABLE conversions (channel TEXT, revenue REAL)`)
	require.NoError(t, err)
	_, err = src.db.ExecContext(ctx, `INSERT INTO conversions VALUES ('Search', 900.5), ('Email', 120)`)
	require.NoError(t, err)

	res, err := src.Query(ctx, `SELECT channel, revenue FROM conversions ORDER BY channel`)
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "revenue"}, res.Columns)
	require.Equal(t, 2, res.RowCount)
	assert.Equal(t, "Email", res.Rows[0]["channel"])
	assert.Equal(t, 120.0, res.Rows[0]["revenue"])
	assert.Equal(t, 900.5, res.Rows[1]["revenue"])
}

func TestSQLiteSourceListTables(t *testing.T) {
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	_, err = src.db.ExecContext(ctx, `CREATE TABLE campaigns (id INTEGER, name TEXT)`)
	require.NoError(t, err)

	tables, err := src.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "campaigns", tables[0]["name"])
	assert.Equal(t, 2, tables[0]["column_count"])
}

func TestSQLiteSourceListTablesQuotedName(t *testing.T) {
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	_, err = src.db.ExecContext(ctx, `CREATE TABLE "q1 '26 spend" (channel TEXT, amount REAL)`)
	require.NoError(t, err)

	tables, err := src.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "q1 '26 spend", tables[0]["name"])
	assert.Equal(t, 2, tables[0]["column_count"])
}

func TestSQLiteSourceQueryError(t *testing.T) {
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Query(context.Background(), `SELECT * FROM no_such_table`)
	require.Error(t, err)
}

func TestPostgresSourceQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT channel, revenue").
		WillReturnRows(pgxmock.NewRows([]string{"channel", "revenue"}).
			AddRow("Search", 900.5).
			AddRow("Email", 120.0))

	src := &PostgresSource{pool: mock}
	res, err := src.Query(context.Background(), "SELECT channel, revenue FROM conversions")
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "revenue"}, res.Columns)
	require.Equal(t, 2, res.RowCount)
	assert.Equal(t, "Search", res.Rows[0]["channel"])
	assert.Equal(t, 900.5, res.Rows[0]["revenue"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceListTables(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("information_schema.columns").
		WillReturnRows(pgxmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("conversions", "channel", "text").
			AddRow("conversions", "revenue", "numeric").
			AddRow("users", "id", "integer"))

	src := &PostgresSource{pool: mock}
	tables, err := src.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "conversions", tables[0]["name"])
	assert.Equal(t, 2, tables[0]["column_count"])
	assert.Equal(t, "users", tables[1]["name"])
	assert.Equal(t, 1, tables[1]["column_count"])
}

func TestOpenDatabaseUnsupportedDriver(t *testing.T) {
	_, err := OpenDatabase(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenDatabaseDefaultsToSQLite(t *testing.T) {
	db, err := OpenDatabase(context.Background(), config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "d.db")})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
