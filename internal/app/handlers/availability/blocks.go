package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	createBlockKey = "availability.block.create"
	deleteBlockKey = "availability.block.delete"
)

type CreateBlockCommand struct {
	TenantID        tenant.ID           `validate:"required"`
	PropertyID      property.PropertyID `validate:"required"`
	CheckIn         time.Time           `validate:"required"`
	CheckOut        time.Time           `validate:"required"`
	Reason          string              `validate:"max=200"`
	IdempotencyKeyV string
}

func (c CreateBlockCommand) Key() string { return createBlockKey }

func (c CreateBlockCommand) TenantScope() tenant.ID { return c.TenantID }

func (c CreateBlockCommand) LockKey() string {
	return policies.PropertyLockKey(string(c.TenantID), string(c.PropertyID))
}

func (c CreateBlockCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBlockCommand) ResultPrototype() any { return &dto.BlockedPeriod{} }

type CreateBlockHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	IDs        func() string
	Now        func() time.Time
}

// Handle blocks the nights for owner use. Blocks may overlap other blocks but
// never a booking that holds the calendar.
func (h *CreateBlockHandler) Handle(ctx context.Context, cmd CreateBlockCommand) (*dto.BlockedPeriod, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)
	unit := scope.Unit

	if _, err := unit.Properties().ByID(ctx, cmd.TenantID, cmd.PropertyID); err != nil {
		return nil, err
	}
	now := clock(h.Now)
	occ, err := BookingOccupancies(ctx, unit, cmd.TenantID, cmd.PropertyID, dr)
	if err != nil {
		return nil, err
	}
	if err := domain.Evaluate(domain.Query{Range: dr}, occ, now).Err(); err != nil {
		return nil, err
	}

	block, err := domain.NewBlockedPeriod(domain.BlockParams{
		ID:         domain.BlockID(h.newID()),
		TenantID:   cmd.TenantID,
		PropertyID: cmd.PropertyID,
		Range:      dr,
		Reason:     cmd.Reason,
		Source:     domain.SourceManual,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Blocks().Save(ctx, block); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, block); err != nil {
		return nil, err
	}
	if err := scope.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapBlockedPeriod(block)
	return &out, nil
}

func (h *CreateBlockHandler) newID() string {
	if h.IDs != nil {
		return h.IDs()
	}
	return uuid.NewString()
}

type DeleteBlockCommand struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
	BlockID    domain.BlockID      `validate:"required"`
}

func (c DeleteBlockCommand) Key() string { return deleteBlockKey }

func (c DeleteBlockCommand) TenantScope() tenant.ID { return c.TenantID }

func (c DeleteBlockCommand) LockKey() string {
	return policies.PropertyLockKey(string(c.TenantID), string(c.PropertyID))
}

type DeleteBlockHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

// Handle removes a manual block. Imported blocks belong to their feed and are
// only removed by the next import.
func (h *DeleteBlockHandler) Handle(ctx context.Context, cmd DeleteBlockCommand) (struct{}, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return struct{}{}, err
	}
	defer scope.Close(ctx)
	unit := scope.Unit

	block, err := unit.Blocks().ByID(ctx, cmd.TenantID, cmd.BlockID)
	if err != nil {
		return struct{}{}, err
	}
	if block.PropertyID != cmd.PropertyID {
		return struct{}{}, domain.ErrBlockNotFound
	}
	if block.Imported() {
		return struct{}{}, domain.ErrImportedBlock
	}
	block.Release(clock(h.Now))
	if err := unit.Blocks().Delete(ctx, cmd.TenantID, block.ID); err != nil {
		return struct{}{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, block); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, scope.Commit(ctx)
}

var _ commands.Handler[CreateBlockCommand, *dto.BlockedPeriod] = (*CreateBlockHandler)(nil)
var _ commands.Handler[DeleteBlockCommand, struct{}] = (*DeleteBlockHandler)(nil)
var _ middleware.IdempotentCommand = CreateBlockCommand{}
var _ middleware.LockedCommand = DeleteBlockCommand{}
