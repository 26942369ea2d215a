package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Standard adjustment reasons
const (
	ReasonInitialStock = "Initial stock"
	ReasonCycleCount   = "Cycle count"
)

// InventoryAdjustment is the immutable audit record of one quantity change
type InventoryAdjustment struct {
	ID              uuid.UUID
	InventoryItemID uuid.UUID
	UserID          uuid.UUID
	QuantityChange  int
	Reason          string
	CreatedAt       time.Time
}

// NewInventoryAdjustment creates an adjustment record
func NewInventoryAdjustment(itemID, userID uuid.UUID, quantityChange int, reason string) (*InventoryAdjustment, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Inventory item ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "User ID cannot be empty")
	}
	if quantityChange == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidAdjustment, "Quantity change cannot be zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Adjustment reason cannot be empty")
	}
	if len(reason) > 255 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Adjustment reason cannot exceed 255 characters")
	}

	return &InventoryAdjustment{
		ID:              uuid.New(),
		InventoryItemID: itemID,
		UserID:          userID,
		QuantityChange:  quantityChange,
		Reason:          reason,
		CreatedAt:       time.Now(),
	}, nil
}

// TransferOutReason is the reason recorded on the source leg of a transfer
func TransferOutReason(toLocation string) string {
	return fmt.Sprintf("Transfer to %s", toLocation)
}

// TransferInReason is the reason recorded on the destination leg of a transfer
func TransferInReason(fromLocation string) string {
	return fmt.Sprintf("Transfer from %s", fromLocation)
}
