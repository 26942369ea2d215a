// Package unitofwork defines the transactional boundary shared by the
// application services. Every multi-row mutation runs inside one Execute call.
package unitofwork

import (
	"context"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the repositories.
// All repository operations made through the TransactionalRepositories passed
// to fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one transaction
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	InventoryRepo() inventory.InventoryItemRepository
	AdjustmentRepo() inventory.AdjustmentRepository
	OrderRepo() trade.OrderRepository
}
