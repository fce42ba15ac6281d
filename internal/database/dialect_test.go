package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectMetadata(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		migrations string
	}{
		{"SQLite", NewSQLiteDialect(), "sqlite3", "sqlite"},
		{"PostgreSQL", NewPostgresDialect(), "postgres", "postgres"},
		{"MySQL", NewMySQLDialect(), "mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.migrations {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.migrations)
			}
			if !strings.Contains(tt.dialect.CreateMigrationsTableQuery(), "migrations") {
				t.Error("CreateMigrationsTableQuery() does not create the migrations table")
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM families WHERE family_code = ?",
			expected: "SELECT * FROM families WHERE family_code = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM families WHERE family_code = ?",
			expected: "SELECT * FROM families WHERE family_code = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO tasks (id, name, status) VALUES (?, ?, ?)",
			expected: "INSERT INTO tasks (id, name, status) VALUES ($1, $2, $3)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE tasks SET status = ? WHERE id = ?",
			expected: "UPDATE tasks SET status = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.dialect.RewriteQuery(tt.query); result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite wrapped", NewSQLiteDialect(), fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}), true},
		{"sqlite foreign key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"postgres unique", NewPostgresDialect(), &pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)}, true},
		{"postgres other", NewPostgresDialect(), &pq.Error{Code: pq.ErrorCode(pgerrcode.NotNullViolation)}, false},
		{"mysql duplicate", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
		{"plain error", NewSQLiteDialect(), errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn := NewMySQLDialect().DSN(DialectConfig{URL: "user:pass@tcp(localhost:3306)/tasks"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN() = %q, want parseTime=true", dsn)
	}
}

func TestSQLiteDSNBeginsImmediate(t *testing.T) {
	dsn := NewSQLiteDialect().DSN(DialectConfig{Path: "/tmp/tasks.db"})
	for _, want := range []string{"_foreign_keys=on", "_busy_timeout=5000", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %q, want %s", dsn, want)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	content := `
-- first table
CREATE TABLE a (id TEXT);

-- comment only;
CREATE INDEX idx_a ON a(id);
`
	stmts := splitStatements(content)
	if len(stmts) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id TEXT)" {
		t.Errorf("first statement = %q", stmts[0])
	}
}
