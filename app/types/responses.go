package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Payment is the API representation of a persisted payment record.
type Payment struct {
	Id            uint64            `json:"id"`
	OrderId       int64             `json:"order_id"`
	PaymentId     string            `json:"payment_id"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Status        string            `json:"status"`
	DataSent      map[string]string `json:"data_sent,omitempty"`
	DataReceived  map[string]string `json:"data_received,omitempty"`
	DateAdded     string            `json:"date_added"`
	DateUpdated   string            `json:"date_updated"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

// FormField is one ordered field of the redirect form.
type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RedirectFormResponse is the auto-submitting form the storefront renders to
// send the customer to the gateway.
type RedirectFormResponse struct {
	Payment *Payment    `json:"payment"`
	Action  string      `json:"action"`
	Method  string      `json:"method"`
	Fields  []FormField `json:"fields"`
}

// ReturnOutcomeResponse tells the storefront where to send the customer
// after a return callback was processed.
type ReturnOutcomeResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}
