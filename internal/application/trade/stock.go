package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
)

// stockMover applies order-driven quantity changes inside one transaction.
// Every touched row is locked, saved, and paired with its adjustment.
type stockMover struct {
	repos  unitofwork.TransactionalRepositories
	events *unitofwork.Events
	userID uuid.UUID
}

func newStockMover(repos unitofwork.TransactionalRepositories, events *unitofwork.Events, userID uuid.UUID) *stockMover {
	return &stockMover{repos: repos, events: events, userID: userID}
}

// pick locks and returns the row a line should draw quantity from.
// A pinned location must cover the quantity by itself. Otherwise the preferred
// row wins when it covers the quantity, then the fullest row of the product.
func (m *stockMover) pick(ctx context.Context, productID uuid.UUID, quantity int, preferred *uuid.UUID, location string) (*inventory.InventoryItem, error) {
	repo := m.repos.InventoryRepo()

	if location != "" {
		row, err := repo.FindByProductAndLocationForUpdate(ctx, productID, location)
		if err != nil {
			if shared.IsCode(err, shared.CodeNotFound) {
				return nil, insufficient(productID, quantity, 0).WithDetail("location", location)
			}
			return nil, err
		}
		if !row.CanSupply(quantity) {
			return nil, insufficient(productID, quantity, row.Quantity).WithDetail("location", location)
		}
		return row, nil
	}

	rows, err := repo.FindByProductForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if preferred != nil {
		for i := range rows {
			if rows[i].ID == *preferred && rows[i].CanSupply(quantity) {
				return &rows[i], nil
			}
		}
	}
	if len(rows) > 0 && rows[0].CanSupply(quantity) {
		return &rows[0], nil
	}

	available := 0
	if len(rows) > 0 {
		available = rows[0].Quantity
	}
	return nil, insufficient(productID, quantity, available)
}

// withdraw takes quantity from row and records the adjustment
func (m *stockMover) withdraw(ctx context.Context, row *inventory.InventoryItem, quantity int, reason string) error {
	adjustment, err := row.Withdraw(quantity, reason, m.userID)
	if err != nil {
		return err
	}
	return m.persist(ctx, row, adjustment)
}

// take picks a row for the line and withdraws quantity from it
func (m *stockMover) take(ctx context.Context, productID uuid.UUID, quantity int, preferred *uuid.UUID, location, reason string) (*inventory.InventoryItem, error) {
	row, err := m.pick(ctx, productID, quantity, preferred, location)
	if err != nil {
		return nil, err
	}
	if err := m.withdraw(ctx, row, quantity, reason); err != nil {
		return nil, err
	}
	return row, nil
}

// extend withdraws more quantity for a line already on the order. A line
// keeps drawing from its own row so a later restock returns every unit there.
func (m *stockMover) extend(ctx context.Context, item *trade.OrderItem, quantity int, location, reason string) error {
	if item.InventoryItemID != nil {
		row, err := m.repos.InventoryRepo().FindByIDForUpdate(ctx, *item.InventoryItemID)
		switch {
		case err == nil:
			if location != "" && location != row.Location {
				return shared.NewDomainError(shared.CodeValidation, "Order line already draws from another location").
					WithDetail("product_id", item.ProductID.String()).
					WithDetail("location", row.Location)
			}
			if !row.CanSupply(quantity) {
				return insufficient(item.ProductID, quantity, row.Quantity).WithDetail("location", row.Location)
			}
			return m.withdraw(ctx, row, quantity, reason)
		case !shared.IsCode(err, shared.CodeNotFound):
			return err
		}
	}

	// The line has no row left to draw from
	row, err := m.take(ctx, item.ProductID, quantity, nil, location, reason)
	if err != nil {
		return err
	}
	item.InventoryItemID = &row.ID
	return nil
}

// restock returns quantity of an order line to the row it was drawn from.
// Lines without a known row go back to the fullest row of the product.
func (m *stockMover) restock(ctx context.Context, item trade.OrderItem, quantity int, reason string) error {
	repo := m.repos.InventoryRepo()

	var row *inventory.InventoryItem
	if item.InventoryItemID != nil {
		found, err := repo.FindByIDForUpdate(ctx, *item.InventoryItemID)
		switch {
		case err == nil:
			row = found
		case !shared.IsCode(err, shared.CodeNotFound):
			return err
		}
	}
	if row == nil {
		rows, err := repo.FindByProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return shared.NewDomainError(shared.CodeNotFound, "No inventory location to restock product").
				WithDetail("product_id", item.ProductID.String())
		}
		row = &rows[0]
	}

	adjustment, err := row.Restock(quantity, reason, m.userID)
	if err != nil {
		return err
	}
	return m.persist(ctx, row, adjustment)
}

// restockAll returns every line of the order to stock
func (m *stockMover) restockAll(ctx context.Context, order *trade.Order, reason string) error {
	for _, item := range order.Items {
		if err := m.restock(ctx, item, item.Quantity, reason); err != nil {
			return err
		}
	}
	return nil
}

func (m *stockMover) persist(ctx context.Context, row *inventory.InventoryItem, adjustment *inventory.InventoryAdjustment) error {
	if err := m.repos.InventoryRepo().Save(ctx, row); err != nil {
		return err
	}
	if err := m.repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
		return err
	}
	m.events.Collect(row)
	return nil
}

func insufficient(productID uuid.UUID, requested, available int) *shared.DomainError {
	return shared.ErrInsufficientInventory.
		WithDetail("product_id", productID.String()).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

func orderReason(order *trade.Order, action string) string {
	return fmt.Sprintf("Order %s %s", order.ShopifyOrderID, action)
}
