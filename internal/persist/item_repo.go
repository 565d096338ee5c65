package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gridrealm/server/internal/data"
)

// ItemRepo syncs the compile-time item catalog into the items reference
// table and persists per-player containers.
type ItemRepo struct {
	db *DB
}

func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

// SyncCatalog upserts every item template so foreign keys and external
// tools always see the current catalog.
func (r *ItemRepo) SyncCatalog(ctx context.Context, items *data.ItemTable) error {
	batch := &pgx.Batch{}
	n := 0
	var encodeErr error
	items.All(func(it *data.ItemTemplate) {
		stats, err := json.Marshal(it.Stats.ToMap())
		if err != nil {
			encodeErr = err
			return
		}
		batch.Queue(
			`INSERT INTO items (name, display_name, category, rarity, equipment_slot,
			        max_stack_size, two_handed, max_durability, required_skill,
			        required_level, tradeable, base_value, stats, sprite, tint)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			 ON CONFLICT (name) DO UPDATE SET
			        display_name = EXCLUDED.display_name,
			        category = EXCLUDED.category,
			        rarity = EXCLUDED.rarity,
			        equipment_slot = EXCLUDED.equipment_slot,
			        max_stack_size = EXCLUDED.max_stack_size,
			        two_handed = EXCLUDED.two_handed,
			        max_durability = EXCLUDED.max_durability,
			        required_skill = EXCLUDED.required_skill,
			        required_level = EXCLUDED.required_level,
			        tradeable = EXCLUDED.tradeable,
			        base_value = EXCLUDED.base_value,
			        stats = EXCLUDED.stats,
			        sprite = EXCLUDED.sprite,
			        tint = EXCLUDED.tint`,
			it.Name, it.DisplayName, it.Category, it.Rarity, nullStr(it.EquipmentSlot),
			it.MaxStackSize, it.TwoHanded, it.MaxDurability, nullStr(it.RequiredSkill),
			it.RequiredLevel, it.Tradeable, it.BaseValue, stats,
			nullStr(it.Sprite), nullStr(it.Tint))
		n++
	})
	if encodeErr != nil {
		return fmt.Errorf("encode item stats: %w", encodeErr)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("sync item catalog: %w", err)
		}
	}
	return nil
}

// InventoryRow is one persisted inventory slot.
type InventoryRow struct {
	Slot       int
	Item       string
	Quantity   int
	Durability *int
}

// EquipmentRow is one persisted equipment slot.
type EquipmentRow struct {
	SlotName   string
	Item       string
	Durability *int
}

// LoadInventory reads a player's slots.
func (r *ItemRepo) LoadInventory(ctx context.Context, playerID int64) ([]InventoryRow, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, item_name, quantity, durability
		 FROM player_inventory WHERE player_id = $1 ORDER BY slot`, playerID)
	if err != nil {
		return nil, fmt.Errorf("load inventory %d: %w", playerID, err)
	}
	defer rows.Close()
	var out []InventoryRow
	for rows.Next() {
		var ir InventoryRow
		if err := rows.Scan(&ir.Slot, &ir.Item, &ir.Quantity, &ir.Durability); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

// SaveInventory replaces a player's slots in one transaction.
func (r *ItemRepo) SaveInventory(ctx context.Context, playerID int64, rows []InventoryRow) error {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin inventory save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM player_inventory WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clear inventory %d: %w", playerID, err)
	}
	for _, ir := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO player_inventory (player_id, slot, item_name, quantity, durability)
			 VALUES ($1, $2, $3, $4, $5)`,
			playerID, ir.Slot, ir.Item, ir.Quantity, ir.Durability); err != nil {
			return fmt.Errorf("save inventory %d slot %d: %w", playerID, ir.Slot, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadEquipment reads a player's worn items.
func (r *ItemRepo) LoadEquipment(ctx context.Context, playerID int64) ([]EquipmentRow, error) {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot_name, item_name, durability
		 FROM player_equipment WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("load equipment %d: %w", playerID, err)
	}
	defer rows.Close()
	var out []EquipmentRow
	for rows.Next() {
		var er EquipmentRow
		if err := rows.Scan(&er.SlotName, &er.Item, &er.Durability); err != nil {
			return nil, fmt.Errorf("scan equipment row: %w", err)
		}
		out = append(out, er)
	}
	return out, rows.Err()
}

// SaveEquipment replaces a player's worn items in one transaction.
func (r *ItemRepo) SaveEquipment(ctx context.Context, playerID int64, rows []EquipmentRow) error {
	ctx, cancel := r.db.opCtx(ctx)
	defer cancel()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin equipment save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM player_equipment WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clear equipment %d: %w", playerID, err)
	}
	for _, er := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO player_equipment (player_id, slot_name, item_name, durability)
			 VALUES ($1, $2, $3, $4)`,
			playerID, er.SlotName, er.Item, er.Durability); err != nil {
			return fmt.Errorf("save equipment %d %s: %w", playerID, er.SlotName, err)
		}
	}
	return tx.Commit(ctx)
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
