// internal/store/pgstore/squads.go
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/squadpick/squadpick/internal/draft"
	"github.com/squadpick/squadpick/internal/store"
)

// Squads is the Postgres SquadStore. Rosters are JSONB columns; the rating
// aggregate and the per-voter sub-records are kept consistent inside one
// transaction.
type Squads struct {
	db  *pgxpool.Pool
	rdb *redis.Client
	log *logrus.Logger
}

// NewSquads wires a squad store over an existing pool and Redis client.
func NewSquads(db *pgxpool.Pool, rdb *redis.Client, log *logrus.Logger) *Squads {
	return &Squads{db: db, rdb: rdb, log: log}
}

func (s *Squads) SaveIfAbsent(ctx context.Context, squad *store.SavedSquad) (bool, error) {
	hostTeam, err := json.Marshal(squad.HostTeam)
	if err != nil {
		return false, err
	}
	guestTeam, err := json.Marshal(squad.GuestTeam)
	if err != nil {
		return false, err
	}
	q := `
	INSERT INTO squads (id, room_code, host_name, guest_name, host_team, guest_team, total_rating, rating_count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7)
	ON CONFLICT (id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, q,
		squad.ID, squad.RoomCode, squad.HostName, squad.GuestName,
		hostTeam, guestTeam, squad.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.publish(ctx)
	return true, nil
}

func (s *Squads) Get(ctx context.Context, id string) (*store.SavedSquad, error) {
	q := `
	SELECT id, room_code, host_name, guest_name, host_team, guest_team, total_rating, rating_count, created_at
	  FROM squads WHERE id = $1
	`
	sq, err := scanSquad(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return sq, err
}

func (s *Squads) List(ctx context.Context) ([]*store.SavedSquad, error) {
	q := `
	SELECT id, room_code, host_name, guest_name, host_team, guest_team, total_rating, rating_count, created_at
	  FROM squads ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*store.SavedSquad{}
	for rows.Next() {
		sq, err := scanSquad(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

// Rate upserts the voter's sub-record and adjusts the aggregate in one
// transaction: a repeat vote replaces the old value without bumping the
// count, making re-rating idempotent per anonymous id.
func (s *Squads) Rate(ctx context.Context, squadID, voterID string, value int) error {
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM squads WHERE id = $1 FOR UPDATE`, squadID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		var old int
		err := tx.QueryRow(ctx,
			`SELECT value FROM squad_votes WHERE squad_id = $1 AND voter_id = $2`,
			squadID, voterID,
		).Scan(&old)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx,
				`INSERT INTO squad_votes (squad_id, voter_id, value) VALUES ($1, $2, $3)`,
				squadID, voterID, value,
			); err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				`UPDATE squads SET total_rating = total_rating + $1, rating_count = rating_count + 1 WHERE id = $2`,
				value, squadID,
			)
			return err
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(ctx,
				`UPDATE squad_votes SET value = $1 WHERE squad_id = $2 AND voter_id = $3`,
				value, squadID, voterID,
			); err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				`UPDATE squads SET total_rating = total_rating - $1 + $2 WHERE id = $3`,
				old, value, squadID,
			)
			return err
		}
	})
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *Squads) Vote(ctx context.Context, squadID, voterID string) (int, bool, error) {
	var v int
	err := s.db.QueryRow(ctx,
		`SELECT value FROM squad_votes WHERE squad_id = $1 AND voter_id = $2`,
		squadID, voterID,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *Squads) Watch(ctx context.Context) (<-chan []*store.SavedSquad, store.CancelFunc, error) {
	ps := s.rdb.Subscribe(ctx, squadsChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan []*store.SavedSquad, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		deliver := func() bool {
			list, err := s.List(ctx)
			if err != nil {
				s.log.Warnf("squad listing query failed: %v", err)
				return true
			}
			select {
			case out <- list:
				return true
			case <-done:
				return false
			case <-ctx.Done():
				return false
			}
		}
		if !deliver() {
			return
		}
		for {
			select {
			case _, ok := <-ps.Channel():
				if !ok {
					return
				}
				if !deliver() {
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}
	return out, cancel, nil
}

func (s *Squads) publish(ctx context.Context) {
	if err := s.rdb.Publish(ctx, squadsChannel, "changed").Err(); err != nil {
		s.log.Warnf("publish squads signal failed: %v", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSquad(row rowScanner) (*store.SavedSquad, error) {
	var sq store.SavedSquad
	var hostTeam, guestTeam []byte
	err := row.Scan(
		&sq.ID, &sq.RoomCode, &sq.HostName, &sq.GuestName,
		&hostTeam, &guestTeam, &sq.TotalRating, &sq.RatingCount, &sq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hostTeam, &sq.HostTeam); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(guestTeam, &sq.GuestTeam); err != nil {
		return nil, err
	}
	if sq.HostTeam == nil {
		sq.HostTeam = []draft.PlayerInfo{}
	}
	if sq.GuestTeam == nil {
		sq.GuestTeam = []draft.PlayerInfo{}
	}
	return &sq, nil
}
