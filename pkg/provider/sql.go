package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect SQL 方言
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const tableName = "database_analysis"

// schema 建表语句，逐条执行（mysql 驱动默认不支持多语句）
func (d Dialect) schema() []string {
	switch d {
	case DialectMySQL:
		return []string{`
		CREATE TABLE IF NOT EXISTS database_analysis (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			database_id VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			data LONGTEXT NOT NULL,
			INDEX idx_database_analysis_db (database_id, created_at)
		)`}
	case DialectPostgres:
		return []string{`
		CREATE TABLE IF NOT EXISTS database_analysis (
			id TEXT PRIMARY KEY,
			database_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			data TEXT NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_database_analysis_db ON database_analysis(database_id, created_at)`,
		}
	default:
		return []string{`
		CREATE TABLE IF NOT EXISTS database_analysis (
			id TEXT PRIMARY KEY,
			database_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			data TEXT NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_database_analysis_db ON database_analysis(database_id, created_at)`,
		}
	}
}

// rebind 把 ? 占位符转换为方言的写法
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// SQLProvider 基于 database/sql 的存储，表 database_analysis(id, database_id, created_at, data)
type SQLProvider struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLProvider 打开数据库并建表
func NewSQLProvider(ctx context.Context, dialect Dialect, dsn string) (*SQLProvider, error) {
	switch dialect {
	case DialectSQLite:
		if dsn == "" {
			dsn = "redisx.db"
		}
	case DialectMySQL:
		if dsn == "" {
			return nil, errors.New("mysql provider requires a dsn")
		}
		// created_at 需要扫描为 time.Time
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	case DialectPostgres:
		if dsn == "" {
			return nil, errors.New("postgres provider requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// sqlite 单写者
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect %s: %w", dialect, err)
	}
	for _, stmt := range dialect.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s table: %w", tableName, err)
		}
	}

	return &SQLProvider{db: db, dialect: dialect}, nil
}

func (p *SQLProvider) Create(ctx context.Context, analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, error) {
	saved, data, err := prepare(analysis)
	if err != nil {
		return nil, err
	}

	insertSQL := p.dialect.rebind(`
	INSERT INTO database_analysis (id, database_id, created_at, data)
	VALUES (?, ?, ?, ?)
	`)
	if _, err := p.db.ExecContext(ctx, insertSQL, saved.ID, saved.DatabaseID, saved.CreatedAt, string(data)); err != nil {
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return saved, nil
}

func (p *SQLProvider) Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error) {
	var data string
	row := p.db.QueryRowContext(ctx, p.dialect.rebind(`SELECT data FROM database_analysis WHERE id = ?`), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	return decode([]byte(data))
}

func (p *SQLProvider) List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error) {
	rows, err := p.db.QueryContext(ctx, p.dialect.rebind(`
	SELECT id, created_at FROM database_analysis
	WHERE database_id = ?
	ORDER BY created_at DESC, id ASC
	`), databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	list := []models.ShortDatabaseAnalysis{}
	for rows.Next() {
		var item models.ShortDatabaseAnalysis
		if err := rows.Scan(&item.ID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *SQLProvider) Close() error {
	return p.db.Close()
}
