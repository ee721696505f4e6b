// internal/workers/communication/send-invoice-email/config.go
package sendinvoiceemail

import "time"

type Config struct {
	Timeout time.Duration
	// PDFBaseURL prefixes invoice PDF file names that are not absolute URLs.
	PDFBaseURL string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		PDFBaseURL: "https://drclean.cz/invoices",
	}
}
