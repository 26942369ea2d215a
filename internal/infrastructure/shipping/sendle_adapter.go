// Package shipping contains the carrier adapters behind integration.ShippingProvider.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

const (
	// CarrierSendle is the carrier name recorded on fulfillments
	CarrierSendle = "Sendle"

	maxSendleResponseSize = 10 * 1024 * 1024
	sendleWeightUnits     = "kg"
)

// SendleAdapter implements integration.ShippingProvider against the Sendle API
type SendleAdapter struct {
	config     *SendleConfig
	httpClient *http.Client
}

// NewSendleAdapter creates a new Sendle adapter with the given configuration
func NewSendleAdapter(config *SendleConfig) (*SendleAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SendleAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// CreateLabel books a Sendle order. The idempotency key makes a retried
// booking return the order created by the first attempt.
func (a *SendleAdapter) CreateLabel(ctx context.Context, req integration.LabelRequest) (*integration.Label, error) {
	receiver := req.Receiver.Normalize()
	if err := receiver.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformRejected, err)
	}

	body := SendleOrderRequest{
		Sender:            toSendleParty(a.config.Pickup),
		Receiver:          toSendleParty(receiver),
		Weight:            a.weight(req.Parcel.WeightKg),
		Description:       req.Parcel.Description,
		CustomerReference: req.Reference,
	}

	headers := http.Header{}
	if req.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", req.IdempotencyKey)
	}

	var order SendleOrder
	if err := a.doRequest(ctx, http.MethodPost, "/api/orders", nil, headers, body, &order); err != nil {
		return nil, err
	}
	if order.OrderID == "" || order.SendleReference == "" {
		return nil, fmt.Errorf("%w: order id or reference missing", integration.ErrPlatformInvalidResponse)
	}

	label := &integration.Label{
		ShipmentID:     order.OrderID,
		TrackingNumber: order.SendleReference,
		LabelURL:       pickLabelURL(order.Labels),
		TrackingURL:    order.TrackingURL,
		Carrier:        CarrierSendle,
	}
	if order.Price != nil {
		label.Price = decimal.NewFromFloat(order.Price.Gross.Amount).Round(2)
		label.Currency = order.Price.Gross.Currency
	}
	return label, nil
}

// GetTracking returns the tracking history of a Sendle reference
func (a *SendleAdapter) GetTracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error) {
	if strings.TrimSpace(trackingNumber) == "" {
		return nil, fmt.Errorf("%w: tracking number is required", integration.ErrPlatformRejected)
	}

	var resp SendleTracking
	if err := a.doRequest(ctx, http.MethodGet, "/api/tracking/"+url.PathEscape(trackingNumber), nil, nil, nil, &resp); err != nil {
		return nil, err
	}

	info := &integration.TrackingInfo{
		TrackingNumber: trackingNumber,
		State:          resp.State,
		Events:         make([]integration.TrackingEvent, 0, len(resp.TrackingEvents)),
	}
	for _, e := range resp.TrackingEvents {
		occurred, _ := time.Parse(time.RFC3339, e.ScanTime)
		info.Events = append(info.Events, integration.TrackingEvent{
			Type:        e.EventType,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  occurred,
		})
	}
	return info, nil
}

// GetQuotes returns the plans Sendle offers for a parcel
func (a *SendleAdapter) GetQuotes(ctx context.Context, req integration.QuoteRequest) ([]integration.Quote, error) {
	var resp []SendleQuote
	if err := a.doRequest(ctx, http.MethodGet, "/api/quote", a.quoteQuery(req.Receiver.Normalize(), req.Parcel.WeightKg), nil, nil, &resp); err != nil {
		return nil, err
	}

	quotes := make([]integration.Quote, 0, len(resp))
	for _, q := range resp {
		quotes = append(quotes, integration.Quote{
			Plan:     q.PlanName,
			Price:    decimal.NewFromFloat(q.Quote.Gross.Amount).Round(2),
			Currency: q.Quote.Gross.Currency,
			EtaDays:  q.ETA.DaysRange,
		})
	}
	return quotes, nil
}

// ValidateAddress asks Sendle to quote a delivery to the address.
// Sendle rejects undeliverable addresses with validation messages.
func (a *SendleAdapter) ValidateAddress(ctx context.Context, address valueobject.Address) (*integration.AddressValidation, error) {
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return &integration.AddressValidation{Valid: false, Messages: []string{err.Error()}}, nil
	}

	var resp []SendleQuote
	err := a.doRequest(ctx, http.MethodGet, "/api/quote", a.quoteQuery(address, decimal.Zero), nil, nil, &resp)
	if err == nil {
		return &integration.AddressValidation{Valid: true}, nil
	}

	var rejected *sendleRejection
	if errors.As(err, &rejected) {
		return &integration.AddressValidation{Valid: false, Messages: rejected.messages}, nil
	}
	return nil, err
}

// CancelShipment cancels a booked Sendle order
func (a *SendleAdapter) CancelShipment(ctx context.Context, shipmentID string) error {
	if strings.TrimSpace(shipmentID) == "" {
		return fmt.Errorf("%w: shipment id is required", integration.ErrPlatformRejected)
	}
	return a.doRequest(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(shipmentID), nil, nil, nil, nil)
}

// DownloadLabel fetches the PDF of a label. Only URLs on the configured
// API host receive credentials.
func (a *SendleAdapter) DownloadLabel(ctx context.Context, labelURL string) (_ []byte, err error) {
	target, err := url.Parse(labelURL)
	if err != nil || !target.IsAbs() {
		return nil, fmt.Errorf("%w: invalid label url", integration.ErrPlatformRejected)
	}

	ctx, span := telemetry.StartClientSpan(ctx, CarrierSendle, "GET label",
		telemetry.Attr("server.address", target.Host))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sendle: failed to create request: %w", err)
	}
	if base, err := url.Parse(a.config.BaseURL); err == nil && base.Host == target.Host {
		req.SetBasicAuth(a.config.SendleID, a.config.APIKey)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(telemetry.Attr("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSendleResponseSize))
	if err != nil {
		return nil, fmt.Errorf("sendle: failed to read label: %w", err)
	}
	if err := sendleStatusError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty label", integration.ErrPlatformInvalidResponse)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// HTTP Helpers
// ---------------------------------------------------------------------------

func (a *SendleAdapter) doRequest(ctx context.Context, method, path string, query url.Values, headers http.Header, in any, out any) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, CarrierSendle, method+" "+path,
		telemetry.Attr("http.request.method", method))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("sendle: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := a.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("sendle: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.SendleID, a.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(telemetry.Attr("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSendleResponseSize))
	if err != nil {
		return fmt.Errorf("sendle: failed to read response: %w", err)
	}

	if err := sendleStatusError(resp.StatusCode, body); err != nil {
		return err
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
		}
	}
	return nil
}

func (a *SendleAdapter) weight(kg decimal.Decimal) SendleWeight {
	if !kg.IsPositive() {
		kg = a.config.DefaultWeightKg
	}
	return SendleWeight{Value: kg.Round(3).String(), Units: sendleWeightUnits}
}

func (a *SendleAdapter) quoteQuery(receiver valueobject.Address, weightKg decimal.Decimal) url.Values {
	w := a.weight(weightKg)
	q := url.Values{}
	q.Set("sender_suburb", a.config.Pickup.City)
	q.Set("sender_postcode", a.config.Pickup.Postcode)
	q.Set("sender_country", a.config.Pickup.Country)
	q.Set("receiver_suburb", receiver.City)
	q.Set("receiver_postcode", receiver.Postcode)
	q.Set("receiver_country", receiver.Country)
	q.Set("weight_value", w.Value)
	q.Set("weight_units", w.Units)
	return q
}

// sendleRejection is a 4xx validation failure carrying Sendle's messages
type sendleRejection struct {
	status   int
	messages []string
}

func (e *sendleRejection) Error() string {
	return fmt.Sprintf("%s: %s", integration.ErrPlatformRejected, strings.Join(e.messages, "; "))
}

func (e *sendleRejection) Unwrap() error {
	return integration.ErrPlatformRejected
}

func sendleStatusError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformNotFound, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, status)
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return &sendleRejection{status: status, messages: sendleErrorMessages(body)}
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, status)
	default:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, status)
	}
}

// sendleErrorMessages flattens the nested messages object into
// "receiver.address.postcode: is invalid" lines
func sendleErrorMessages(body []byte) []string {
	var resp SendleErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return []string{strings.TrimSpace(string(body))}
	}

	var out []string
	flattenSendleMessages("", resp.Messages, &out)
	sort.Strings(out)
	if len(out) == 0 {
		switch {
		case resp.ErrorDescription != "":
			out = append(out, resp.ErrorDescription)
		case resp.Error != "":
			out = append(out, resp.Error)
		}
	}
	return out
}

func flattenSendleMessages(prefix string, v any, out *[]string) {
	switch node := v.(type) {
	case map[string]any:
		for key, child := range node {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flattenSendleMessages(path, child, out)
		}
	case []any:
		for _, child := range node {
			flattenSendleMessages(prefix, child, out)
		}
	case string:
		if prefix == "" {
			*out = append(*out, node)
		} else {
			*out = append(*out, prefix+": "+node)
		}
	}
}

func toSendleParty(a valueobject.Address) SendleParty {
	return SendleParty{
		Contact: SendleContact{
			Name:    a.Name,
			Email:   a.Email,
			Phone:   a.Phone,
			Company: a.Company,
		},
		Address: SendleAddress{
			AddressLine1: a.Line1,
			AddressLine2: a.Line2,
			Suburb:       a.City,
			Postcode:     a.Postcode,
			StateName:    a.State,
			Country:      a.Country,
		},
	}
}

// pickLabelURL prefers the A4 PDF rendition
func pickLabelURL(labels []SendleLabel) string {
	var fallback string
	for _, l := range labels {
		if !strings.EqualFold(l.Format, "pdf") {
			continue
		}
		if strings.EqualFold(l.Size, "a4") {
			return l.URL
		}
		if fallback == "" {
			fallback = l.URL
		}
	}
	return fallback
}

var _ integration.ShippingProvider = (*SendleAdapter)(nil)
