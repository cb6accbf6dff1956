// Package engine composes the matching shards, the market statistics
// engine, the analytics pool and the external collaborators into one
// runnable process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/event/v1"
	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	snapshotv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/snapshot/v1"
	"github.com/azaynul10/CarbonPro-AI/internal/infrastructure/postgresql/order"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/dispatch"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/matching"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/orderbook"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/stats"
	"github.com/azaynul10/CarbonPro-AI/pkg/fixedpoint"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
)

// Engine runs one matching shard per instrument, fans executed trades out
// to the statistics engine and the event stream, and manages snapshots,
// expiry sweeps and analytics offload.
type Engine struct {
	logger    logger.Interface
	options   *Options
	shards    map[string]*matching.Engine
	stats     *stats.MarketStats
	pool      *dispatch.Pool
	reader    orderv1.Reader
	publisher eventv1.Publisher
	snapshots snapshotv1.Store
	repo      order.Repository // optional recovery/persistence collaborator

	mu             sync.Mutex
	processedSince map[string]int64
	lastOffset     map[string]int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine serving the given instruments. repo may be
// nil when no persistence collaborator is configured.
func NewEngine(
	instruments []string,
	reader orderv1.Reader,
	publisher eventv1.Publisher,
	snapshots snapshotv1.Store,
	repo order.Repository,
	marketStats *stats.MarketStats,
	pool *dispatch.Pool,
	log logger.Interface,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultOptions()
	}

	shards := make(map[string]*matching.Engine, len(instruments))
	for _, instrumentID := range instruments {
		shards[instrumentID] = matching.NewEngine(orderbook.NewOrderBook(instrumentID), log)
	}

	return &Engine{
		logger:         log,
		options:        options,
		shards:         shards,
		stats:          marketStats,
		pool:           pool,
		reader:         reader,
		publisher:      publisher,
		snapshots:      snapshots,
		repo:           repo,
		processedSince: make(map[string]int64),
		lastOffset:     make(map[string]int64),
	}
}

// Start recovers the books and launches the processing goroutines.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.recoverBooks(e.ctx); err != nil {
		return err
	}

	e.pool.Start(e.ctx)

	e.wg.Add(3)
	go e.runOrderProcessor()
	go e.runSnapshotManager()
	go e.runExpirySweeper()

	e.logger.Info("engine started",
		logger.Field{Key: "instruments", Value: len(e.shards)},
	)
	return nil
}

// Stop shuts the engine down gracefully within the stop timeout.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	_ = e.reader.Close()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		e.logger.Info("engine stopped")
	case <-ctx.Done():
		e.logger.Warn("engine stop timeout exceeded")
		err = ctx.Err()
	}

	if poolErr := e.pool.Stop(ctx); poolErr != nil && err == nil {
		err = poolErr
	}
	if closeErr := e.publisher.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// recoverBooks rebuilds each instrument's book: from the latest snapshot
// when one exists, otherwise by replaying open orders from the repository
// in creation sequence, skipping matching — they were already matched as
// of the last persisted state.
func (e *Engine) recoverBooks(ctx context.Context) error {
	for instrumentID, shard := range e.shards {
		snap, err := e.snapshots.Load(ctx, instrumentID)
		if err != nil {
			return err
		}
		if snap != nil {
			if err := shard.Book().Restore(snap); err != nil {
				return err
			}
			e.logger.Info("book restored from snapshot",
				logger.Field{Key: "instrumentID", Value: instrumentID},
				logger.Field{Key: "orders", Value: shard.Book().Len()},
			)
			continue
		}

		if e.repo == nil {
			continue
		}
		orders, err := e.repo.LoadOpenOrders(ctx, instrumentID)
		if err != nil {
			return err
		}
		for _, o := range orders {
			if err := shard.Book().AddOrder(o); err != nil {
				return err
			}
		}
		if len(orders) > 0 {
			e.logger.Info("book replayed from repository",
				logger.Field{Key: "instrumentID", Value: instrumentID},
				logger.Field{Key: "orders", Value: len(orders)},
			)
		}
	}
	return nil
}

// runOrderProcessor reads instructions off the order stream and applies
// them to the matching shards.
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("order processor shutting down")
			return
		default:
			msg, instruction, err := e.reader.ReadInstruction(e.ctx)
			if err != nil {
				if e.ctx.Err() != nil {
					return
				}
				e.logger.Error(err, logger.Field{Key: "action", Value: "read_instruction"})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			e.processInstruction(e.ctx, instruction)

			if err := e.reader.CommitMessages(e.ctx, msg); err != nil && e.ctx.Err() == nil {
				e.logger.Error(err, logger.Field{Key: "action", Value: "commit_instruction"})
			}
		}
	}
}

func (e *Engine) processInstruction(ctx context.Context, instruction *orderv1.Instruction) {
	shard, exists := e.shards[instruction.InstrumentID]
	if !exists {
		e.logger.Warn("instruction for unknown instrument",
			logger.Field{Key: "instrumentID", Value: instruction.InstrumentID},
		)
		return
	}

	e.recordOffset(instruction.InstrumentID, instruction.Offset)

	switch instruction.Action {
	case orderv1.ActionSubmit:
		e.processSubmit(ctx, shard, instruction)
	case orderv1.ActionCancel:
		e.processCancel(ctx, shard, instruction)
	default:
		e.logger.Warn("unknown instruction action",
			logger.Field{Key: "instructionAction", Value: string(instruction.Action)},
		)
	}
}

func (e *Engine) processSubmit(ctx context.Context, shard *matching.Engine, instruction *orderv1.Instruction) {
	price, err := fixedpoint.FromString(instruction.Price)
	if err != nil {
		e.logger.Warn("order rejected: bad price",
			logger.Field{Key: "price", Value: instruction.Price},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	quantity, err := fixedpoint.FromString(instruction.Quantity)
	if err != nil {
		e.logger.Warn("order rejected: bad quantity",
			logger.Field{Key: "quantity", Value: instruction.Quantity},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	result, err := shard.SubmitOrder(
		instruction.RequesterID,
		orderv1.Side(instruction.Side),
		instruction.InstrumentID,
		price,
		quantity,
		instruction.ExpiresAt,
	)
	if err != nil {
		// Validation failure: rejected synchronously, no state mutated.
		e.logger.Warn("order rejected",
			logger.Field{Key: "instrumentID", Value: instruction.InstrumentID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	for i, trade := range result.Trades {
		e.stats.RecordTrade(trade)
		e.publish(ctx, eventv1.TradeEvent(trade))
		if e.repo != nil {
			if repoErr := e.repo.SaveTrade(ctx, trade); repoErr != nil {
				e.logger.Error(repoErr, logger.Field{Key: "tradeID", Value: trade.ID})
			}
		}

		resting := result.Touched[i]
		if resting.Status.IsOpen() {
			e.publish(ctx, eventv1.OrderEvent(eventv1.TypeOrderUpdated, resting))
		} else {
			e.publish(ctx, eventv1.OrderEvent(eventv1.TypeOrderRemoved, resting))
		}
		e.saveOrder(ctx, resting)
	}

	if result.Rested() {
		e.publish(ctx, eventv1.OrderEvent(eventv1.TypeOrderAdded, result.Order))
	}
	e.saveOrder(ctx, result.Order)

	e.publish(ctx, eventv1.SnapshotEvent(shard.Book().Snapshot()))
	e.bumpProcessed(instruction.InstrumentID)
}

func (e *Engine) processCancel(ctx context.Context, shard *matching.Engine, instruction *orderv1.Instruction) {
	cancelled, err := shard.CancelOrder(instruction.OrderID, instruction.RequesterID)
	switch {
	case err == nil:
		e.publish(ctx, eventv1.OrderEvent(eventv1.TypeOrderRemoved, cancelled))
		e.saveOrder(ctx, cancelled)
		e.publish(ctx, eventv1.SnapshotEvent(shard.Book().Snapshot()))
		e.bumpProcessed(instruction.InstrumentID)
	case errors.Is(err, orderv1.ErrNotOwner):
		e.logger.Warn("cancel rejected: requester is not the owner",
			logger.Field{Key: "orderID", Value: instruction.OrderID},
			logger.Field{Key: "requesterID", Value: instruction.RequesterID},
		)
	default:
		// Cancel of an unknown or already-closed order is a benign no-op.
		e.logger.Debug("cancel skipped",
			logger.Field{Key: "orderID", Value: instruction.OrderID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// runSnapshotManager persists book snapshots after enough orders have been
// processed since the last one.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.options.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("snapshot manager shutting down")
			return
		case <-ticker.C:
			for instrumentID, shard := range e.shards {
				if !e.shouldSnapshot(instrumentID) {
					continue
				}
				snap := shard.Book().CreateSnapshot()
				snap.StreamOffset = e.offsetFor(instrumentID)
				if err := e.snapshots.Store(e.ctx, snap); err != nil {
					e.logger.Error(err, logger.Field{Key: "instrumentID", Value: instrumentID})
					continue
				}
				e.resetProcessed(instrumentID)
			}
		}
	}
}

// runExpirySweeper periodically removes resting orders whose expiry has
// passed.
func (e *Engine) runExpirySweeper() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.options.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("expiry sweeper shutting down")
			return
		case now := <-ticker.C:
			for _, shard := range e.shards {
				expired := shard.ExpireDue(now)
				for _, o := range expired {
					e.publish(e.ctx, eventv1.OrderEvent(eventv1.TypeOrderRemoved, o))
					e.saveOrder(e.ctx, o)
				}
				if len(expired) > 0 {
					e.publish(e.ctx, eventv1.SnapshotEvent(shard.Book().Snapshot()))
				}
			}
		}
	}
}

// DepthReport submits an order-book depth analytics task to the pool and
// returns the result channel. The report is computed from the cached
// snapshot, so it never contends with matching.
func (e *Engine) DepthReport(instrumentID string) (<-chan dispatch.Result, error) {
	shard, exists := e.shards[instrumentID]
	if !exists {
		return nil, fmt.Errorf("unknown instrument %s", instrumentID)
	}

	return e.pool.Submit(dispatch.Task{
		Name: "depth_report:" + instrumentID,
		Run: func(ctx context.Context) (any, error) {
			return shard.Book().Snapshot(), nil
		},
	})
}

// VolatilityReport submits a moving-average/volatility task over the
// instrument's recent trade prices.
func (e *Engine) VolatilityReport(instrumentID string, window int) (<-chan dispatch.Result, error) {
	return e.pool.Submit(dispatch.Task{
		Name: "volatility:" + instrumentID,
		Run: func(ctx context.Context) (any, error) {
			prices := e.stats.RecentPrices(instrumentID, window)
			return stats.Volatility(prices, window)
		},
	})
}

// Stats exposes the market statistics engine for read-only queries.
func (e *Engine) Stats() *stats.MarketStats {
	return e.stats
}

func (e *Engine) publish(ctx context.Context, envelope *eventv1.Envelope) {
	if err := e.publisher.Publish(ctx, envelope); err != nil && ctx.Err() == nil {
		e.logger.Error(err, logger.Field{Key: "eventType", Value: string(envelope.Type)})
	}
}

func (e *Engine) saveOrder(ctx context.Context, o *orderv1.Order) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveOrder(ctx, o); err != nil {
		e.logger.Error(err, logger.Field{Key: "orderID", Value: o.ID})
	}
}

func (e *Engine) recordOffset(instrumentID string, offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if offset > e.lastOffset[instrumentID] {
		e.lastOffset[instrumentID] = offset
	}
}

func (e *Engine) offsetFor(instrumentID string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOffset[instrumentID]
}

func (e *Engine) bumpProcessed(instrumentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processedSince[instrumentID]++
}

func (e *Engine) shouldSnapshot(instrumentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processedSince[instrumentID] >= e.options.SnapshotOrderDelta
}

func (e *Engine) resetProcessed(instrumentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processedSince[instrumentID] = 0
}
