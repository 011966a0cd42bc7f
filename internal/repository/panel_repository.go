package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PanelBinding records a persisted ticket setup panel so the recovery
// bootstrapper can re-attach its controls after a restart.
type PanelBinding struct {
	ChannelRef string
	MessageRef string
}

// PanelRepository persists setup panel bindings.
type PanelRepository interface {
	Upsert(ctx context.Context, binding PanelBinding) error
	List(ctx context.Context) ([]PanelBinding, error)
	Delete(ctx context.Context, channelRef string) error
}

type panelRepository struct {
	pool *pgxpool.Pool
}

// NewPanelRepository instantiates the Postgres-backed repository.
func NewPanelRepository(pool *pgxpool.Pool) PanelRepository {
	return &panelRepository{pool: pool}
}

func (r *panelRepository) Upsert(ctx context.Context, binding PanelBinding) error {
	const query = `
        INSERT INTO panel_bindings (channel_ref, message_ref)
        VALUES ($1,$2)
        ON CONFLICT (channel_ref) DO UPDATE SET message_ref = EXCLUDED.message_ref`
	_, err := r.pool.Exec(ctx, query, binding.ChannelRef, binding.MessageRef)
	return err
}

func (r *panelRepository) List(ctx context.Context) ([]PanelBinding, error) {
	rows, err := r.pool.Query(ctx, `SELECT channel_ref, message_ref FROM panel_bindings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PanelBinding
	for rows.Next() {
		var binding PanelBinding
		if err := rows.Scan(&binding.ChannelRef, &binding.MessageRef); err != nil {
			return nil, err
		}
		result = append(result, binding)
	}
	return result, rows.Err()
}

func (r *panelRepository) Delete(ctx context.Context, channelRef string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM panel_bindings WHERE channel_ref=$1`, channelRef)
	return err
}
