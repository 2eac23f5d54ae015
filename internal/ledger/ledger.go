// internal/ledger/ledger.go

// Package ledger applies stock-affecting events (counts, receipts, transfers,
// waste) to per-location on-hand totals. Events are immutable once created and
// apply in arrival order; on-hand mutation is read-modify-write, so writers to
// the same (item, location) key are serialized through a per-key lock.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
	"github.com/platewise/costing/internal/units"
)

// Ledger owns all writes to on-hand levels.
type Ledger struct {
	levels    repository.LevelStore
	counts    repository.CountStore
	receipts  repository.ReceiptStore
	transfers repository.TransferStore
	wastes    repository.WasteStore
	items     repository.ItemStore
	units     *units.Registry
	keys      *keyedMutex
	log       zerolog.Logger
}

func NewLedger(
	levels repository.LevelStore,
	counts repository.CountStore,
	receipts repository.ReceiptStore,
	transfers repository.TransferStore,
	wastes repository.WasteStore,
	items repository.ItemStore,
	registry *units.Registry,
	log zerolog.Logger,
) *Ledger {
	return &Ledger{
		levels:    levels,
		counts:    counts,
		receipts:  receipts,
		transfers: transfers,
		wastes:    wastes,
		items:     items,
		units:     registry,
		keys:      newKeyedMutex(),
		log:       log,
	}
}

func levelLockKey(itemID, locationID string) string {
	return itemID + "|" + locationID
}

// revertOnHand restores a level after a later write in the same operation
// failed. A failed revert leaves the level out of step with the event log and
// is logged loudly; the caller still returns the original error.
func (l *Ledger) revertOnHand(ctx context.Context, itemID, locationID string, baseQty float64) {
	if err := l.levels.SetOnHand(ctx, itemID, locationID, baseQty); err != nil {
		l.log.Error().Err(err).
			Str("item_id", itemID).
			Str("location_id", locationID).
			Msg("failed to revert on-hand after write failure")
	}
}

// StartCount opens a count session at a location. Lines are added with
// ApplyCount against the returned session ID.
func (l *Ledger) StartCount(ctx context.Context, locationID string, countedAt time.Time) (*domain.InventoryCount, error) {
	count := &domain.InventoryCount{
		ID:         uuid.NewString(),
		LocationID: locationID,
		CountedAt:  countedAt,
	}
	if err := l.counts.CreateCount(ctx, count); err != nil {
		return nil, fmt.Errorf("create count session: %w", err)
	}
	return count, nil
}

// ApplyCount records a counted quantity. A count is an authoritative snapshot:
// on-hand is set to the counted value, not adjusted by it. The item's current
// cost is frozen into the line so historical count valuation never moves when
// the item's cost changes later.
func (l *Ledger) ApplyCount(ctx context.Context, countID, itemID string, qty float64, unitID string) (*domain.InventoryCountLine, error) {
	count, err := l.counts.GetCount(ctx, countID)
	if err != nil {
		return nil, err
	}

	baseQty, err := l.units.ConvertToBase(ctx, qty, unitID)
	if err != nil {
		return nil, err
	}

	item, err := l.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	line := &domain.InventoryCountLine{
		ID:               uuid.NewString(),
		CountID:          countID,
		ItemID:           itemID,
		Qty:              qty,
		UnitID:           unitID,
		DerivedBaseUnits: baseQty,
		UnitCostSnapshot: item.LastCost,
	}

	unlock := l.keys.Lock(levelLockKey(itemID, count.LocationID))
	defer unlock()

	prior, err := l.levels.GetOnHand(ctx, itemID, count.LocationID)
	if err != nil {
		return nil, err
	}

	// Level first, event row last: a failure part-way must not leave a
	// persisted event whose effect never landed.
	if err := l.levels.SetOnHand(ctx, itemID, count.LocationID, baseQty); err != nil {
		return nil, fmt.Errorf("set on-hand from count: %w", err)
	}
	if err := l.counts.CreateCountLine(ctx, line); err != nil {
		l.revertOnHand(ctx, itemID, count.LocationID, prior)
		return nil, fmt.Errorf("create count line: %w", err)
	}

	return line, nil
}

// ApplyReceipt records received stock: on-hand increases by the derived base
// quantity and the item's last cost moves to the received cost per base unit.
// Moving last cost, not weighted average.
func (l *Ledger) ApplyReceipt(ctx context.Context, receiptID, itemID, locationID string, qty float64, unitID string, priceEach decimal.Decimal, receivedAt time.Time) (*domain.ReceiptLine, error) {
	baseQty, err := l.units.ConvertToBase(ctx, qty, unitID)
	if err != nil {
		return nil, err
	}

	item, err := l.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	line := &domain.ReceiptLine{
		ID:               uuid.NewString(),
		ReceiptID:        receiptID,
		ItemID:           itemID,
		LocationID:       locationID,
		Qty:              qty,
		UnitID:           unitID,
		DerivedBaseUnits: baseQty,
		PriceEach:        priceEach,
		ReceivedAt:       receivedAt,
	}

	unlock := l.keys.Lock(levelLockKey(itemID, locationID))
	defer unlock()

	onHand, err := l.levels.GetOnHand(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}

	// Level and cost first, event row last; each later failure unwinds the
	// earlier writes so a failed receipt is never half-applied.
	if err := l.levels.SetOnHand(ctx, itemID, locationID, onHand+baseQty); err != nil {
		return nil, fmt.Errorf("apply receipt to on-hand: %w", err)
	}

	if baseQty > 0 {
		costPerBase := priceEach.Mul(decimal.NewFromFloat(qty)).Div(decimal.NewFromFloat(baseQty))
		if err := l.items.UpdateItemCost(ctx, itemID, costPerBase); err != nil {
			l.revertOnHand(ctx, itemID, locationID, onHand)
			return nil, fmt.Errorf("update item last cost: %w", err)
		}
	}

	if err := l.receipts.CreateReceiptLine(ctx, line); err != nil {
		if baseQty > 0 {
			if costErr := l.items.UpdateItemCost(ctx, itemID, item.LastCost); costErr != nil {
				l.log.Error().Err(costErr).Str("item_id", itemID).Msg("failed to revert item cost after receipt write failure")
			}
		}
		l.revertOnHand(ctx, itemID, locationID, onHand)
		return nil, fmt.Errorf("create receipt line: %w", err)
	}

	return line, nil
}

// ApplyTransfer moves stock between two locations. Both sides succeed or
// neither does; a transfer exceeding the source on-hand is rejected and leaves
// both sides unchanged.
func (l *Ledger) ApplyTransfer(ctx context.Context, itemID, fromLocationID, toLocationID string, qty float64, unitID string, transferredAt time.Time) (*domain.TransferLog, error) {
	if fromLocationID == toLocationID {
		return nil, domain.ErrSameLocation
	}

	baseQty, err := l.units.ConvertToBase(ctx, qty, unitID)
	if err != nil {
		return nil, err
	}

	unlock := l.keys.LockPair(levelLockKey(itemID, fromLocationID), levelLockKey(itemID, toLocationID))
	defer unlock()

	sourceOnHand, err := l.levels.GetOnHand(ctx, itemID, fromLocationID)
	if err != nil {
		return nil, err
	}
	if sourceOnHand < baseQty {
		return nil, fmt.Errorf("transfer %.3f base units of %s from %s (on hand %.3f): %w",
			baseQty, itemID, fromLocationID, sourceOnHand, domain.ErrInsufficientInventory)
	}

	log := &domain.TransferLog{
		ID:               uuid.NewString(),
		ItemID:           itemID,
		FromLocationID:   fromLocationID,
		ToLocationID:     toLocationID,
		DerivedBaseUnits: baseQty,
		TransferredAt:    transferredAt,
	}

	if err := l.levels.MoveOnHand(ctx, itemID, fromLocationID, toLocationID, baseQty); err != nil {
		return nil, fmt.Errorf("apply transfer to on-hand: %w", err)
	}
	if err := l.transfers.CreateTransfer(ctx, log); err != nil {
		if moveErr := l.levels.MoveOnHand(ctx, itemID, toLocationID, fromLocationID, baseQty); moveErr != nil {
			l.log.Error().Err(moveErr).Str("item_id", itemID).Msg("failed to revert transfer after log write failure")
		}
		return nil, fmt.Errorf("create transfer log: %w", err)
	}

	return log, nil
}

// ApplyWaste writes stock off at a location. Wasting more than is on hand is
// rejected.
func (l *Ledger) ApplyWaste(ctx context.Context, itemID, locationID string, qty float64, unitID, reasonCode string, wastedAt time.Time) (*domain.WasteLog, error) {
	baseQty, err := l.units.ConvertToBase(ctx, qty, unitID)
	if err != nil {
		return nil, err
	}

	unlock := l.keys.Lock(levelLockKey(itemID, locationID))
	defer unlock()

	onHand, err := l.levels.GetOnHand(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	if onHand < baseQty {
		return nil, fmt.Errorf("waste %.3f base units of %s at %s (on hand %.3f): %w",
			baseQty, itemID, locationID, onHand, domain.ErrInsufficientInventory)
	}

	log := &domain.WasteLog{
		ID:               uuid.NewString(),
		ItemID:           itemID,
		LocationID:       locationID,
		DerivedBaseUnits: baseQty,
		ReasonCode:       reasonCode,
		WastedAt:         wastedAt,
	}

	if err := l.levels.SetOnHand(ctx, itemID, locationID, onHand-baseQty); err != nil {
		return nil, fmt.Errorf("apply waste to on-hand: %w", err)
	}
	if err := l.wastes.CreateWaste(ctx, log); err != nil {
		l.revertOnHand(ctx, itemID, locationID, onHand)
		return nil, fmt.Errorf("create waste log: %w", err)
	}

	return log, nil
}

// CorrectCountLine replaces a count line's quantity. The line's effect was a
// set, so its old derived contribution is reversed before the new one is
// applied: onHand - oldBase + newBase. Never a plain overwrite.
//
// TODO: re-derive on-hand by replaying events since the prior count instead of
// patching the running total; the patch is only exact when nothing else touched
// the key between the original count and the correction.
func (l *Ledger) CorrectCountLine(ctx context.Context, lineID string, newQty float64) (*domain.InventoryCountLine, error) {
	line, err := l.counts.GetCountLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	count, err := l.counts.GetCount(ctx, line.CountID)
	if err != nil {
		return nil, err
	}

	newBase, err := l.units.ConvertToBase(ctx, newQty, line.UnitID)
	if err != nil {
		return nil, err
	}

	unlock := l.keys.Lock(levelLockKey(line.ItemID, count.LocationID))
	defer unlock()

	onHand, err := l.levels.GetOnHand(ctx, line.ItemID, count.LocationID)
	if err != nil {
		return nil, err
	}

	oldBase := line.DerivedBaseUnits
	updated := *line
	updated.Qty = newQty
	updated.DerivedBaseUnits = newBase

	if err := l.counts.UpdateCountLine(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update count line: %w", err)
	}
	if err := l.levels.SetOnHand(ctx, line.ItemID, count.LocationID, onHand-oldBase+newBase); err != nil {
		// Restore the line so the stored event matches the level again.
		if revertErr := l.counts.UpdateCountLine(ctx, line); revertErr != nil {
			l.log.Error().Err(revertErr).Str("line_id", lineID).Msg("failed to revert count line after level write failure")
		}
		return nil, fmt.Errorf("apply count correction to on-hand: %w", err)
	}

	return &updated, nil
}

// DeleteCountSession reverses every line's contribution from current on-hand,
// then deletes the lines and the session.
func (l *Ledger) DeleteCountSession(ctx context.Context, countID string) error {
	count, err := l.counts.GetCount(ctx, countID)
	if err != nil {
		return err
	}

	lines, err := l.counts.ListCountLines(ctx, countID)
	if err != nil {
		return err
	}

	for _, line := range lines {
		unlock := l.keys.Lock(levelLockKey(line.ItemID, count.LocationID))
		onHand, err := l.levels.GetOnHand(ctx, line.ItemID, count.LocationID)
		if err != nil {
			unlock()
			return err
		}
		if err := l.levels.SetOnHand(ctx, line.ItemID, count.LocationID, onHand-line.DerivedBaseUnits); err != nil {
			unlock()
			return fmt.Errorf("reverse count line %s: %w", line.ID, err)
		}
		unlock()
	}

	if err := l.counts.DeleteCount(ctx, countID); err != nil {
		return fmt.Errorf("delete count session: %w", err)
	}

	return nil
}

// OnHand reads the current on-hand base quantity for an item at a location.
func (l *Ledger) OnHand(ctx context.Context, itemID, locationID string) (float64, error) {
	return l.levels.GetOnHand(ctx, itemID, locationID)
}
