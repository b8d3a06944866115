package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/legisdoc/parecer/internal/models"
)

// Store groups the repositories behind one connection.
type Store struct {
	db *sql.DB

	Committees *CommitteeRepository
	Members    *MemberRepository
	History    *HistoryRepository
}

// NewStore builds every repository on db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Committees: NewCommitteeRepository(db),
		Members:    NewMemberRepository(db),
		History:    NewHistoryRepository(db),
	}
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CommitteeByCode returns ErrNotFound for unknown codes.
func (s *Store) CommitteeByCode(ctx context.Context, code string) (*models.Committee, error) {
	return s.Committees.GetByCode(ctx, code)
}

func (s *Store) MembersOf(ctx context.Context, committeeID int64) ([]models.Member, error) {
	return s.Members.ListByCommittee(ctx, committeeID)
}

func (s *Store) RecordGeneration(ctx context.Context, rec *models.HistoryRecord) error {
	return s.History.Create(ctx, rec)
}

// ListHistory returns generated documents, newest first.
func (s *Store) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	return s.History.List(ctx)
}

// CommitteesWithMembers returns every committee with its members attached.
func (s *Store) CommitteesWithMembers(ctx context.Context) ([]models.CommitteeWithMembers, error) {
	committees, err := s.Committees.List(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.Members.List(ctx)
	if err != nil {
		return nil, err
	}

	byCommittee := make(map[int64][]models.Member, len(committees))
	for _, m := range members {
		byCommittee[m.CommitteeID] = append(byCommittee[m.CommitteeID], m)
	}

	out := make([]models.CommitteeWithMembers, 0, len(committees))
	for _, c := range committees {
		ms := byCommittee[c.ID]
		if ms == nil {
			ms = []models.Member{}
		}
		out = append(out, models.CommitteeWithMembers{Committee: c, Members: ms})
	}
	return out, nil
}

// Bootstrap creates the schema and seeds the standing committees.
func Bootstrap(ctx context.Context, db *sql.DB, driver string) error {
	if err := Migrate(db, driver); err != nil {
		return err
	}
	if err := Seed(ctx, db, driver); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
