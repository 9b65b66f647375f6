package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	domainoptions "github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Read-only units use snapshot
// reads so a query sees one consistent calendar.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session
}

func (u *Unit) Properties() property.Repository {
	return propertyRepository{col: u.db.Collection(colProperties)}
}

func (u *Unit) Periods() pricing.PeriodRepository {
	return periodRepository{col: u.db.Collection(colPeriods)}
}

func (u *Unit) Options() domainoptions.Repository {
	return optionRepository{col: u.db.Collection(colOptions)}
}

func (u *Unit) Promos() promo.Repository {
	return promoRepository{col: u.db.Collection(colPromos)}
}

func (u *Unit) Payments() payments.Repository {
	return paymentRepository{col: u.db.Collection(colPayments)}
}

func (u *Unit) Bookings() booking.Repository {
	return NewBookingRepository(u.db)
}

func (u *Unit) Blocks() availability.Repository {
	return blockRepository{col: u.db.Collection(colBlocks)}
}

func (u *Unit) Subscriptions() calendarsync.SubscriptionRepository {
	return subscriptionRepository{col: u.db.Collection(colSubscriptions)}
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// isWriteConflict reports a transaction losing a write race to another one.
func isWriteConflict(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && (se.HasErrorCode(112) || se.HasErrorLabel("TransientTransactionError"))
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
