package source

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/marketing-reports/internal/config"
	"github.com/sells-group/marketing-reports/internal/model"
)

// Database is the relational source: ad hoc queries plus table listing.
type Database interface {
	Query(ctx context.Context, query string) (*model.TabularResult, error)
	ListTables(ctx context.Context) ([]map[string]any, error)
	Close() error
}

// OpenDatabase opens the relational source selected by configuration.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.URL)
	default:
		return nil, eris.Errorf("database source: unsupported driver %q", cfg.Driver)
	}
}

// SQLiteSource implements Database using modernc.org/sqlite.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite source: open")
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) Query(ctx context.Context, query string) (*model.TabularResult, error) {
	return s.query(ctx, query)
}

func (s *SQLiteSource) query(ctx context.Context, query string, args ...any) (*model.TabularResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite source: query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite source: columns")
	}

	result := &model.TabularResult{Columns: columns, Rows: []model.ConversionRecord{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite source: scan")
		}
		rec := make(model.ConversionRecord, len(columns))
		for i, col := range columns {
			rec[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite source: iterate")
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

func (s *SQLiteSource) ListTables(ctx context.Context) ([]map[string]any, error) {
	table, err := s.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		name, _ := row["name"].(string)
		cols, err := s.query(ctx, `SELECT name, type FROM pragma_table_info(?)`, name)
		if err != nil {
			return nil, err
		}
		columns := make([]map[string]any, 0, len(cols.Rows))
		for _, c := range cols.Rows {
			columns = append(columns, map[string]any{"name": c["name"], "type": c["type"]})
		}
		out = append(out, map[string]any{
			"name":         name,
			"columns":      columns,
			"column_count": len(columns),
		})
	}
	return out, nil
}

// pgxQuerier is the subset of pgxpool.Pool the postgres source uses;
// pgxmock satisfies it in tests.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresSource implements Database using pgx.
type PostgresSource struct {
	pool pgxQuerier
}

// OpenPostgres connects a pgx pool to the given DSN.
func OpenPostgres(ctx context.Context, connString string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres source: connect")
	}
	return &PostgresSource{pool: pool}, nil
}

func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSource) Query(ctx context.Context, query string) (*model.TabularResult, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres source: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &model.TabularResult{Columns: columns, Rows: []model.ConversionRecord{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres source: read row")
		}
		rec := make(model.ConversionRecord, len(columns))
		for i, col := range columns {
			if i < len(values) {
				rec[col] = normalizeValue(values[i])
			}
		}
		result.Rows = append(result.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres source: iterate")
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

func (s *PostgresSource) ListTables(ctx context.Context) ([]map[string]any, error) {
	table, err := s.Query(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, err
	}

	order := []string{}
	grouped := map[string][]map[string]any{}
	for _, row := range table.Rows {
		name, _ := row["table_name"].(string)
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], map[string]any{
			"name": row["column_name"],
			"type": row["data_type"],
		})
	}

	out := make([]map[string]any, 0, len(order))
	for _, name := range order {
		out = append(out, map[string]any{
			"name":         name,
			"columns":      grouped[name],
			"column_count": len(grouped[name]),
		})
	}
	return out, nil
}
