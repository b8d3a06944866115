package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/legisdoc/parecer/internal/models"
)

// CommitteeRepository handles committee database operations
type CommitteeRepository struct {
	db *sql.DB
}

// NewCommitteeRepository creates a new committee repository
func NewCommitteeRepository(db *sql.DB) *CommitteeRepository {
	return &CommitteeRepository{db: db}
}

// List returns every committee ordered by id
func (r *CommitteeRepository) List(ctx context.Context) ([]models.Committee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, nome, sigla FROM comissoes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list committees: %w", err)
	}
	defer rows.Close()

	committees := []models.Committee{}
	for rows.Next() {
		var c models.Committee
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("failed to scan committee: %w", err)
		}
		committees = append(committees, c)
	}
	return committees, rows.Err()
}

// GetByCode looks a committee up by its short code
func (r *CommitteeRepository) GetByCode(ctx context.Context, code string) (*models.Committee, error) {
	return r.getOne(ctx, `SELECT id, nome, sigla FROM comissoes WHERE sigla = ?`, code)
}

// GetByID looks a committee up by id
func (r *CommitteeRepository) GetByID(ctx context.Context, id int64) (*models.Committee, error) {
	return r.getOne(ctx, `SELECT id, nome, sigla FROM comissoes WHERE id = ?`, id)
}

func (r *CommitteeRepository) getOne(ctx context.Context, query string, arg any) (*models.Committee, error) {
	var c models.Committee
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get committee: %w", err)
	}
	return &c, nil
}

// Create inserts a committee and sets its id
func (r *CommitteeRepository) Create(ctx context.Context, c *models.Committee) error {
	if err := validateCommittee(c); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO comissoes (nome, sigla) VALUES (?, ?)`, c.Name, c.Code)
	if err != nil {
		return fmt.Errorf("failed to create committee: %w", translateWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read committee id: %w", err)
	}
	c.ID = id
	return nil
}

// Update rewrites name and code of an existing committee
func (r *CommitteeRepository) Update(ctx context.Context, c *models.Committee) error {
	if err := validateCommittee(c); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE comissoes SET nome = ?, sigla = ? WHERE id = ?`, c.Name, c.Code, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update committee: %w", translateWriteError(err))
	}
	return expectOneRow(res)
}

// Delete removes a committee and, through the foreign key, its members
func (r *CommitteeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comissoes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete committee: %w", err)
	}
	return expectOneRow(res)
}

func validateCommittee(c *models.Committee) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Name == "" || c.Code == "" {
		return fmt.Errorf("%w: committee name and code are required", ErrInvalid)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
