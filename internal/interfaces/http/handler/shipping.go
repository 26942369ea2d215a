package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	shippingapp "github.com/wms/backend/internal/application/shipping"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// ShippingService is the carrier service used by ShippingHandler
type ShippingService interface {
	GenerateLabel(ctx context.Context, orderID uuid.UUID) (*shippingapp.LabelResponse, error)
	GetTracking(ctx context.Context, orderID uuid.UUID) (*shippingapp.TrackingResponse, error)
	GetQuotes(ctx context.Context, orderID uuid.UUID) (*shippingapp.QuoteResponse, error)
	ValidateAddress(ctx context.Context, address valueobject.Address) (*integration.AddressValidation, error)
	CancelShipment(ctx context.Context, orderID uuid.UUID) error
}

// ShippingHandler handles carrier endpoints
type ShippingHandler struct {
	BaseHandler
	shippingService ShippingService
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(shippingService ShippingService) *ShippingHandler {
	return &ShippingHandler{shippingService: shippingService}
}

// GenerateLabel handles POST /shipping/label/:orderId
func (h *ShippingHandler) GenerateLabel(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "orderId")
	if !ok {
		return
	}
	label, err := h.shippingService.GenerateLabel(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, label)
}

// GetTracking handles GET /shipping/tracking/:orderId
func (h *ShippingHandler) GetTracking(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "orderId")
	if !ok {
		return
	}
	tracking, err := h.shippingService.GetTracking(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tracking)
}

// GetQuotes handles GET /shipping/quote/:orderId
func (h *ShippingHandler) GetQuotes(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "orderId")
	if !ok {
		return
	}
	quotes, err := h.shippingService.GetQuotes(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quotes)
}

// ValidateAddress handles POST /shipping/validate-address
func (h *ShippingHandler) ValidateAddress(c *gin.Context) {
	var req shippingapp.ValidateAddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.shippingService.ValidateAddress(c.Request.Context(), req.Address)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CancelShipment handles POST /shipping/cancel/:orderId
func (h *ShippingHandler) CancelShipment(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "orderId")
	if !ok {
		return
	}
	if err := h.shippingService.CancelShipment(c.Request.Context(), orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Shipment cancelled")
}
