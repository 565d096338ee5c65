package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrPlayerNotFound = errors.New("persist: player not found")

// PlayerRow mirrors the players table.
type PlayerRow struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	MapID        string
	X, Y         int
	HP, MaxHP    int
	Appearance   map[string]string
	Banned       bool
	TimeoutUntil time.Time // zero when not timed out
}

// PlayerRepo persists player accounts and their positional snapshot.
type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo { return &PlayerRepo{db: db} }

const playerCols = `id, username, password_hash, role, map_id, x, y, hp, max_hp, appearance, banned, timeout_until`

func (r *PlayerRepo) GetByID(ctx context.Context, id int64) (*PlayerRow, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+playerCols+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *PlayerRepo) GetByUsername(ctx context.Context, username string) (*PlayerRow, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+playerCols+` FROM players WHERE lower(username) = lower($1)`, username)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (*PlayerRow, error) {
	var p PlayerRow
	var appearance []byte
	var timeout *time.Time
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.Role, &p.MapID,
		&p.X, &p.Y, &p.HP, &p.MaxHP, &appearance, &p.Banned, &timeout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan player: %w", err)
	}
	if len(appearance) > 0 {
		if err := json.Unmarshal(appearance, &p.Appearance); err != nil {
			return nil, fmt.Errorf("decode appearance: %w", err)
		}
	}
	if timeout != nil {
		p.TimeoutUntil = *timeout
	}
	return &p, nil
}

// Create inserts a new account and returns its ID.
func (r *PlayerRepo) Create(ctx context.Context, username, passwordHash, mapID string, x, y int, appearance map[string]string) (int64, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	raw, err := json.Marshal(appearance)
	if err != nil {
		return 0, fmt.Errorf("encode appearance: %w", err)
	}
	var id int64
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO players (username, password_hash, map_id, x, y, appearance)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		username, passwordHash, mapID, x, y, raw).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert player: %w", err)
	}
	return id, nil
}

// SaveSnapshot flushes the hot-tier positional state.
func (r *PlayerRepo) SaveSnapshot(ctx context.Context, id int64, mapID string, x, y, hp, maxHP int, appearance map[string]string) error {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	raw, err := json.Marshal(appearance)
	if err != nil {
		return fmt.Errorf("encode appearance: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET map_id = $2, x = $3, y = $4, hp = $5, max_hp = $6,
		        appearance = $7, last_saved_at = now()
		 WHERE id = $1`,
		id, mapID, x, y, hp, maxHP, raw)
	if err != nil {
		return fmt.Errorf("save player %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// TouchLogin stamps a successful authentication.
func (r *PlayerRepo) TouchLogin(ctx context.Context, id int64) error {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch login %d: %w", id, err)
	}
	return nil
}

// SaveSkills upserts the player's full XP table.
func (r *PlayerRepo) SaveSkills(ctx context.Context, id int64, skills map[string]int64) error {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	batch := &pgx.Batch{}
	for skill, xp := range skills {
		batch.Queue(
			`INSERT INTO player_skills (player_id, skill, xp) VALUES ($1, $2, $3)
			 ON CONFLICT (player_id, skill) DO UPDATE SET xp = EXCLUDED.xp`,
			id, skill, xp)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range skills {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save skills %d: %w", id, err)
		}
	}
	return nil
}

// LoadSkills reads the player's XP table.
func (r *PlayerRepo) LoadSkills(ctx context.Context, id int64) (map[string]int64, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	rows, err := r.db.Pool.Query(ctx,
		`SELECT skill, xp FROM player_skills WHERE player_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("load skills %d: %w", id, err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var skill string
		var xp int64
		if err := rows.Scan(&skill, &xp); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out[skill] = xp
	}
	return out, rows.Err()
}
