package order

import (
	"context"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	tradev1 "github.com/azaynul10/CarbonPro-AI/internal/domain/trade/v1"
)

// Repository is the persistence collaborator for orders and trades. The
// in-memory match is authoritative; writes here are idempotent upserts
// keyed by the immutable ids so at-least-once delivery is safe to retry.
type Repository interface {
	SaveOrder(ctx context.Context, o *orderv1.Order) error
	SaveTrade(ctx context.Context, t *tradev1.Trade) error
	// LoadOpenOrders returns the instrument's pending/partial orders
	// ordered by original creation sequence, for book recovery.
	LoadOpenOrders(ctx context.Context, instrumentID string) ([]*orderv1.Order, error)
}
