package bootstrap

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
)

// Bootstrapper re-attaches interactive controls after a restart: staff
// controls on every active ticket channel and the persisted setup
// panels. Restore never creates tickets or channels and never mutates
// lifecycle timestamps, so running it twice is harmless.
type Bootstrapper struct {
	tickets repository.TicketRepository
	panels  repository.PanelRepository
	binder  platform.ControlBinder
	logger  *zap.Logger
}

// NewBootstrapper constructs the bootstrapper.
func NewBootstrapper(tickets repository.TicketRepository, panels repository.PanelRepository, binder platform.ControlBinder, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{tickets: tickets, panels: panels, binder: binder, logger: logger}
}

// Restore runs the full recovery pass. Individual binding failures are
// logged and skipped; a store failure aborts since nothing useful can
// proceed without the ticket list.
func (b *Bootstrapper) Restore(ctx context.Context) error {
	if err := b.restoreTicketControls(ctx); err != nil {
		return err
	}
	return b.restoreSetupPanels(ctx)
}

func (b *Bootstrapper) restoreTicketControls(ctx context.Context) error {
	active, err := b.tickets.ListActive(ctx)
	if err != nil {
		return &domain.StoreError{Op: "list active tickets", Err: err}
	}

	restored := 0
	for i := range active {
		ticket := &active[i]
		staffControls := ticket.State == domain.TicketStateClaimed
		if err := b.binder.BindTicketControls(ctx, ticket.ChannelRef, staffControls); err != nil {
			b.logger.Warn("failed to rebind ticket controls",
				zap.String("ticket_id", ticket.ID),
				zap.String("channel_ref", ticket.ChannelRef),
				zap.Error(err))
			continue
		}
		restored++
	}
	b.logger.Info("restored ticket controls",
		zap.Int("active", len(active)), zap.Int("restored", restored))
	return nil
}

func (b *Bootstrapper) restoreSetupPanels(ctx context.Context) error {
	bindings, err := b.panels.List(ctx)
	if err != nil {
		return &domain.StoreError{Op: "list panel bindings", Err: err}
	}

	for _, binding := range bindings {
		err := b.binder.BindSetupPanel(ctx, binding.ChannelRef, binding.MessageRef)
		if err == nil {
			continue
		}
		var gone *platform.ErrBindingGone
		if errors.As(err, &gone) {
			// Message was deleted on the platform side; drop the record.
			if derr := b.panels.Delete(ctx, binding.ChannelRef); derr != nil {
				b.logger.Warn("failed to drop stale panel binding",
					zap.String("channel_ref", binding.ChannelRef), zap.Error(derr))
			}
			continue
		}
		b.logger.Warn("failed to rebind setup panel",
			zap.String("channel_ref", binding.ChannelRef), zap.Error(err))
	}
	b.logger.Info("restored setup panels", zap.Int("bindings", len(bindings)))
	return nil
}
