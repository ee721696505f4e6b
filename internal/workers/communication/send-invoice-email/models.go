// internal/workers/communication/send-invoice-email/models.go
package sendinvoiceemail

type Input struct {
	InvoiceID string `json:"invoiceId"`
	// Email overrides the address stored on the invoice.
	Email string `json:"email,omitempty"`
}

type Output struct {
	MessageID string `json:"messageId"`
	Recipient string `json:"recipient"`
	PDFURL    string `json:"pdfUrl"`
	Subject   string `json:"subject"`
}
