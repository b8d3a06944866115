package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/legisdoc/parecer/internal/models"
)

// MemberRepository handles committee member database operations
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// ListByCommittee returns the members of a committee in insertion order.
// Co-signer slots are filled in this order.
func (r *MemberRepository) ListByCommittee(ctx context.Context, committeeID int64) ([]models.Member, error) {
	return r.list(ctx, `SELECT id, nome, cargo, comissao_id FROM membros WHERE comissao_id = ? ORDER BY id`, committeeID)
}

// List returns every member of every committee
func (r *MemberRepository) List(ctx context.Context) ([]models.Member, error) {
	return r.list(ctx, `SELECT id, nome, cargo, comissao_id FROM membros ORDER BY comissao_id, id`)
}

func (r *MemberRepository) list(ctx context.Context, query string, args ...any) ([]models.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.CommitteeID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetByID looks a member up by id
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	var m models.Member
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nome, cargo, comissao_id FROM membros WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Role, &m.CommitteeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// Create inserts a member and sets its id
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO membros (nome, cargo, comissao_id) VALUES (?, ?, ?)`,
		m.Name, m.Role, m.CommitteeID,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read member id: %w", err)
	}
	m.ID = id
	return nil
}

// Update rewrites an existing member
func (r *MemberRepository) Update(ctx context.Context, m *models.Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE membros SET nome = ?, cargo = ?, comissao_id = ? WHERE id = ?`,
		m.Name, m.Role, m.CommitteeID, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes a member
func (r *MemberRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM membros WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return expectOneRow(res)
}

func validateMember(m *models.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Role = strings.TrimSpace(m.Role)
	if m.Name == "" || m.CommitteeID <= 0 {
		return fmt.Errorf("%w: member name and committee are required", ErrInvalid)
	}
	return nil
}
