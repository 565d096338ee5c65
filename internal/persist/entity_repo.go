package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gridrealm/server/internal/data"
)

// EntityRepo syncs the compile-time entity catalog into the entities
// reference table. Live instances never persist; only templates do.
type EntityRepo struct {
	db *DB
}

func NewEntityRepo(db *DB) *EntityRepo { return &EntityRepo{db: db} }

func (r *EntityRepo) SyncCatalog(ctx context.Context, ents *data.EntityTable) error {
	batch := &pgx.Batch{}
	n := 0
	var encodeErr error
	ents.All(func(e *data.EntityTemplate) {
		skills, err := json.Marshal(e.Skills)
		if err != nil {
			encodeErr = err
			return
		}
		appearance, err := marshalOrNil(e.Appearance)
		if err != nil {
			encodeErr = err
			return
		}
		equipped, err := marshalOrNil(e.EquippedItems)
		if err != nil {
			encodeErr = err
			return
		}
		batch.Queue(
			`INSERT INTO entities (name, display_name, kind, behavior, level, skills,
			        appearance, equipped_items, sprite_sheet, aggro_radius,
			        disengage_radius, respawn_ticks, xp_reward)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			 ON CONFLICT (name) DO UPDATE SET
			        display_name = EXCLUDED.display_name,
			        kind = EXCLUDED.kind,
			        behavior = EXCLUDED.behavior,
			        level = EXCLUDED.level,
			        skills = EXCLUDED.skills,
			        appearance = EXCLUDED.appearance,
			        equipped_items = EXCLUDED.equipped_items,
			        sprite_sheet = EXCLUDED.sprite_sheet,
			        aggro_radius = EXCLUDED.aggro_radius,
			        disengage_radius = EXCLUDED.disengage_radius,
			        respawn_ticks = EXCLUDED.respawn_ticks,
			        xp_reward = EXCLUDED.xp_reward`,
			e.Name, e.DisplayName, string(e.Kind), e.Behavior, e.Level, skills,
			appearance, equipped, nullStr(e.SpriteSheet), e.AggroRadius,
			e.DisengageRadius, e.RespawnTicks, e.XPReward)
		n++
	})
	if encodeErr != nil {
		return fmt.Errorf("encode entity template: %w", encodeErr)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("sync entity catalog: %w", err)
		}
	}
	return nil
}

func marshalOrNil(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
