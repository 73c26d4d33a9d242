package executor

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"judgeengine/internal/model"
)

// SQLiteExecutor runs a fixed SQL script against a scratch database that
// test cases set up and tear down around. Grounded on
// original_source/coderunners/executors.py's SQLiteExecutor; replaces
// Python's sqlite3+pandas combo with database/sql over
// github.com/glebarez/go-sqlite (pure Go, no cgo) and stdlib encoding/csv,
// since tables here are treated as plain TEXT-column data rather than
// type-inferred pandas DataFrames.
type SQLiteExecutor struct {
	db     *sql.DB
	script string
}

// NewSQLiteExecutor opens (creating if absent) a SQLite database at
// root/dbName and binds script as the command the executor runs for every
// test case.
func NewSQLiteExecutor(root, dbName, script string) (*SQLiteExecutor, error) {
	db, err := sql.Open("sqlite", filepath.Join(root, dbName))
	if err != nil {
		return nil, fmt.Errorf("executor: open sqlite db: %w", err)
	}
	return &SQLiteExecutor{db: db, script: script}, nil
}

// Close releases the database handle. The executor owns it for the
// lifetime of the submission, per spec.
func (e *SQLiteExecutor) Close() error {
	return e.db.Close()
}

func (e *SQLiteExecutor) Run(ctx context.Context, test model.TestCase, limits Limits) model.RunResult {
	if limits.TimeLimitSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(limits.TimeLimitSeconds*float64(time.Second)))
		defer cancel()
	}

	if strings.TrimSpace(test.Input) != "" {
		if _, err := e.db.ExecContext(ctx, test.Input); err != nil {
			return sqlRuntimeError(err)
		}
	}

	for name, content := range test.InputFiles {
		if err := loadCSVTable(ctx, e.db, name, content); err != nil {
			return sqlRuntimeError(err)
		}
	}

	script := strings.TrimSpace(e.script)
	var outputs string
	if strings.HasPrefix(strings.ToUpper(script), "SELECT") {
		csvOut, err := queryToCSV(ctx, e.db, script)
		if err != nil {
			return sqlRuntimeError(err)
		}
		outputs = csvOut
	} else if script != "" {
		if _, err := e.db.ExecContext(ctx, script); err != nil {
			return sqlRuntimeError(err)
		}
	}

	var outputFiles map[string]string
	if len(test.TargetFiles) > 0 {
		outputFiles = make(map[string]string, len(test.TargetFiles))
		for name := range test.TargetFiles {
			csvOut, err := queryToCSV(ctx, e.db, "SELECT * FROM "+quoteIdent(name))
			if err != nil {
				return sqlRuntimeError(err)
			}
			outputFiles[name] = csvOut
		}
	}

	return model.RunResult{Status: model.StatusOK, Outputs: &outputs, OutputFiles: outputFiles}
}

// Cleanup drops every table in the database, matching executors.py's
// behavior of leaving the connection itself open across test cases.
func (e *SQLiteExecutor) Cleanup(_ model.TestCase) {
	rows, err := e.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		return
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	rows.Close()
	for _, name := range tables {
		_, _ = e.db.Exec("DROP TABLE " + quoteIdent(name))
	}
}

func loadCSVTable(ctx context.Context, db *sql.DB, table, content string) error {
	reader := csv.NewReader(strings.NewReader(content))
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header for table %q: %w", table, err)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv rows for table %q: %w", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	quotedTable := quoteIdent(table)
	cols := make([]string, len(header))
	placeholders := make([]string, len(header))
	for i, col := range header {
		cols[i] = quoteIdent(col)
		placeholders[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)); err != nil {
		return err
	}
	createCols := make([]string, len(header))
	for i, col := range cols {
		createCols[i] = col + " TEXT"
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quotedTable, strings.Join(createCols, ", "))
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return err
	}

	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quotedTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, record := range records {
		args := make([]interface{}, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func queryToCSV(ctx context.Context, db *sql.DB, query string) (string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	if err := writer.Write(columns); err != nil {
		return "", err
	}
	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return "", err
		}
		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	writer.Flush()
	return sb.String(), writer.Error()
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlRuntimeError(err error) model.RunResult {
	msg := err.Error()
	return model.RunResult{Status: model.StatusRuntimeError, Errors: &msg}
}
