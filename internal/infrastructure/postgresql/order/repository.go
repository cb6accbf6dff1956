package order

import (
	"context"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	tradev1 "github.com/azaynul10/CarbonPro-AI/internal/domain/trade/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/errors"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/azaynul10/CarbonPro-AI/pkg/postgresql"
)

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a PostgreSQL-backed order/trade repository.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface) Repository {
	return &repository{
		db:     db,
		logger: log,
	}
}

// SaveOrder upserts an order keyed by its id. Amounts are stored as
// bigint minor units.
func (r *repository) SaveOrder(ctx context.Context, o *orderv1.Order) error {
	query := `
		INSERT INTO orders (id, owner_id, instrument_id, side, price, quantity, remaining, status, sequence, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET remaining = EXCLUDED.remaining, status = EXCLUDED.status`

	_, err := r.db.Exec(ctx, query,
		o.ID,
		o.OwnerID,
		o.InstrumentID,
		string(o.Side),
		int64(o.Price),
		int64(o.Quantity),
		int64(o.Remaining),
		string(o.Status),
		o.Sequence,
		o.CreatedAt,
		o.ExpiresAt,
	)
	if err != nil {
		return errors.TracerFromError(err).WithCode(errors.RepositoryError)
	}
	return nil
}

// SaveTrade inserts a trade; a retried insert of the same trade id is a
// no-op.
func (r *repository) SaveTrade(ctx context.Context, t *tradev1.Trade) error {
	query := `
		INSERT INTO trades (id, buy_order_id, sell_order_id, instrument_id, price, quantity, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.BuyOrderID,
		t.SellOrderID,
		t.InstrumentID,
		int64(t.Price),
		int64(t.Quantity),
		t.ExecutedAt,
	)
	if err != nil {
		return errors.TracerFromError(err).WithCode(errors.RepositoryError)
	}
	return nil
}

// LoadOpenOrders returns the instrument's open orders in their original
// insertion sequence.
func (r *repository) LoadOpenOrders(ctx context.Context, instrumentID string) ([]*orderv1.Order, error) {
	query := `
		SELECT id, owner_id, instrument_id, side, price, quantity, remaining, status, sequence, created_at, expires_at
		FROM orders
		WHERE instrument_id = $1 AND status IN ('pending', 'partial')
		ORDER BY sequence ASC`

	rows, err := r.db.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, errors.TracerFromError(err).WithCode(errors.RepositoryError)
	}
	defer rows.Close()

	var orders []*orderv1.Order
	for rows.Next() {
		var (
			o                          orderv1.Order
			side, status               string
			price, quantity, remaining int64
		)
		if err := rows.Scan(
			&o.ID,
			&o.OwnerID,
			&o.InstrumentID,
			&side,
			&price,
			&quantity,
			&remaining,
			&status,
			&o.Sequence,
			&o.CreatedAt,
			&o.ExpiresAt,
		); err != nil {
			return nil, errors.TracerFromError(err).WithCode(errors.RepositoryError)
		}
		o.Side = orderv1.Side(side)
		o.Status = orderv1.Status(status)
		o.Price = fixedpoint.Amount(price)
		o.Quantity = fixedpoint.Amount(quantity)
		o.Remaining = fixedpoint.Amount(remaining)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err).WithCode(errors.RepositoryError)
	}

	r.logger.Info("loaded open orders",
		logger.Field{Key: "instrumentID", Value: instrumentID},
		logger.Field{Key: "count", Value: len(orders)},
	)
	return orders, nil
}
