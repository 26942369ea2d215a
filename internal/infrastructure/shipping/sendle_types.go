package shipping

// SendleOrderRequest is the body of POST /api/orders
type SendleOrderRequest struct {
	Sender            SendleParty  `json:"sender"`
	Receiver          SendleParty  `json:"receiver"`
	Weight            SendleWeight `json:"weight"`
	Description       string       `json:"description,omitempty"`
	CustomerReference string       `json:"customer_reference,omitempty"`
}

// SendleParty is a sender or receiver
type SendleParty struct {
	Contact      SendleContact `json:"contact"`
	Address      SendleAddress `json:"address"`
	Instructions string        `json:"instructions,omitempty"`
}

// SendleContact identifies the person at an address
type SendleContact struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// SendleAddress is a Sendle postal address
type SendleAddress struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	Suburb       string `json:"suburb"`
	Postcode     string `json:"postcode"`
	StateName    string `json:"state_name,omitempty"`
	Country      string `json:"country"`
}

// SendleWeight is a parcel weight
type SendleWeight struct {
	Value string `json:"value"`
	Units string `json:"units"`
}

// SendleOrder is a booked Sendle order
type SendleOrder struct {
	OrderID         string        `json:"order_id"`
	State           string        `json:"state"`
	OrderURL        string        `json:"order_url"`
	SendleReference string        `json:"sendle_reference"`
	TrackingURL     string        `json:"tracking_url"`
	Labels          []SendleLabel `json:"labels"`
	Price           *SendlePrice  `json:"price,omitempty"`
}

// SendleLabel is one rendition of a shipping label
type SendleLabel struct {
	Format string `json:"format"`
	Size   string `json:"size"`
	URL    string `json:"url"`
}

// SendlePrice is a price breakdown
type SendlePrice struct {
	Gross SendleMoney `json:"gross"`
}

// SendleMoney is an amount with its currency
type SendleMoney struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// SendleTracking is the body of GET /api/tracking/{ref}
type SendleTracking struct {
	State          string                `json:"state"`
	TrackingEvents []SendleTrackingEvent `json:"tracking_events"`
}

// SendleTrackingEvent is one tracking scan
type SendleTrackingEvent struct {
	EventType   string `json:"event_type"`
	ScanTime    string `json:"scan_time"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// SendleQuote is one element of GET /api/quote
type SendleQuote struct {
	Quote    SendlePrice `json:"quote"`
	PlanName string      `json:"plan_name"`
	ETA      struct {
		DaysRange []int `json:"days_range"`
	} `json:"eta"`
}

// SendleErrorResponse is the error body Sendle returns
type SendleErrorResponse struct {
	Error            string         `json:"error"`
	ErrorDescription string         `json:"error_description"`
	Messages         map[string]any `json:"messages,omitempty"`
}
