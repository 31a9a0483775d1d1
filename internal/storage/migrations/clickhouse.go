package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	chstore "github.com/krish2105/lulu-intelligence-dashboard/internal/storage/clickhouse"
)

const createClickhouseVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    String,
		applied_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree
	ORDER BY version
`

// RunClickhouseMigrations creates the rollup database named in dsn when it
// does not exist, then applies the embedded schema. The returned connection
// points at that database and is owned by the caller.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, []string, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "default")
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName)
	admin.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("create database %s: %w", dbName, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}

	applied, err := ApplyClickhouse(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, applied, nil
}

// ApplyClickhouse runs embedded ClickHouse migrations not yet listed in
// schema_migrations and returns the files it applied. ClickHouse has no
// transactional DDL, so each file must be safe to re-run.
func ApplyClickhouse(ctx context.Context, conn *chstore.Conn) ([]string, error) {
	if err := conn.Exec(ctx, createClickhouseVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := appliedClickhouse(ctx, conn)
	if err != nil {
		return nil, err
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	var applied []string
	for _, file := range files {
		if done[file] {
			continue
		}
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return applied, fmt.Errorf("validate migration %s: %w", file, err)
		}
		// One statement per Exec on the native protocol.
		for _, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
		if err := conn.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", file, err)
		}
		applied = append(applied, file)
	}
	return applied, nil
}

func appliedClickhouse(ctx context.Context, conn *chstore.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT DISTINCT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// splitStatements strips "--" lines and splits the rest on ';'.
func splitStatements(input string) []string {
	var body strings.Builder
	for _, line := range strings.Split(input, "\n") {
		if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, "--") {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	var stmts []string
	for _, part := range strings.Split(body.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects a ';' inside a quoted literal, which
// splitStatements would cut in half.
func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; {
		case c == '\'' && quoted && i+1 < len(sql) && sql[i+1] == '\'':
			i++
		case c == '\'':
			quoted = !quoted
		case c == ';' && quoted:
			return fmt.Errorf("semicolon inside string literal at offset %d", i)
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		return db, nil
	}
	return "", fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
}
