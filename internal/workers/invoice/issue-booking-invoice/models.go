// internal/workers/invoice/issue-booking-invoice/models.go
package issuebookinginvoice

type Input struct {
	BookingID string `json:"bookingId"`
}

type Output struct {
	InvoiceID      string `json:"invoiceId"`
	InvoiceNumber  string `json:"invoiceNumber,omitempty"`
	ClientEmail    string `json:"clientEmail,omitempty"`
	Total          string `json:"total,omitempty"`
	AlreadyExists  bool   `json:"alreadyExists"`
	Indexed        bool   `json:"indexed"`
	EventPublished bool   `json:"eventPublished"`
}

// IssuedEvent is published as invoice.issued.
type IssuedEvent struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber"`
	BookingID     string `json:"bookingId"`
	ClientID      string `json:"clientId"`
	Total         string `json:"total"`
}
