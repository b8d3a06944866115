package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/legisdoc/parecer/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned when a record fails validation before writing.
var ErrInvalid = errors.New("invalid record")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("record already exists")

// Open connects to the configured database and verifies the connection.
func Open(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn must be provided", driver)
	}

	var (
		db  *sql.DB
		err error
	)

	switch normalizeDriver(driver) {
	case "sqlite3":
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// a second pooled connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		cfg, perr := mysql.ParseDSN(dsn)
		if perr != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", perr)
		}
		// updates that change nothing still report the matched row
		cfg.ClientFoundRows = true
		db, err = sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return strings.ToLower(driver)
	}
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch normalizeDriver(driver) {
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS comissoes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				nome TEXT NOT NULL,
				sigla TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS membros (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				nome TEXT NOT NULL,
				cargo TEXT NOT NULL,
				comissao_id INTEGER NOT NULL,
				FOREIGN KEY(comissao_id) REFERENCES comissoes(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_membros_comissao ON membros(comissao_id)`,
			`CREATE TABLE IF NOT EXISTS pareceres (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				pdf_name TEXT NOT NULL,
				docx_name TEXT NOT NULL,
				numero_projeto TEXT NOT NULL,
				data_geracao TEXT NOT NULL
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS comissoes (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				nome VARCHAR(255) NOT NULL,
				sigla VARCHAR(32) NOT NULL UNIQUE,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS membros (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				nome VARCHAR(255) NOT NULL,
				cargo VARCHAR(255) NOT NULL,
				comissao_id BIGINT UNSIGNED NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_membros_comissao (comissao_id),
				CONSTRAINT fk_membros_comissao FOREIGN KEY (comissao_id) REFERENCES comissoes(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS pareceres (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				pdf_name VARCHAR(512) NOT NULL,
				docx_name VARCHAR(512) NOT NULL,
				numero_projeto VARCHAR(64) NOT NULL,
				data_geracao VARCHAR(32) NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DefaultCommittees are the standing committees created by Seed.
var DefaultCommittees = []models.Committee{
	{Name: "Comissão de Justiça e Redação", Code: "CJR"},
	{Name: "Comissão de Finanças e Orçamento", Code: "CFO"},
	{Name: "Comissão de Obras e Serviços Públicos", Code: "COSP"},
	{Name: "Comissão de Educação, Saúde e Assistência Social", Code: "CESA"},
}

// Seed inserts DefaultCommittees, leaving existing codes untouched.
func Seed(ctx context.Context, db *sql.DB, driver string) error {
	insert := "INSERT OR IGNORE INTO comissoes (nome, sigla) VALUES (?, ?)"
	if normalizeDriver(driver) == "mysql" {
		insert = "INSERT IGNORE INTO comissoes (nome, sigla) VALUES (?, ?)"
	}
	for _, c := range DefaultCommittees {
		if _, err := db.ExecContext(ctx, insert, c.Name, c.Code); err != nil {
			return fmt.Errorf("seed committee %s: %w", c.Code, err)
		}
	}
	return nil
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translateWriteError maps driver constraint errors onto ErrConflict.
func translateWriteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
