package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceIssued  InvoiceStatus = "issued"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	BookingID       *string         `json:"bookingId,omitempty"`
	ClientID        string          `json:"clientId,omitempty"`
	ClientName      string          `json:"clientName"`
	ClientEmail     string          `json:"clientEmail,omitempty"`
	ClientPhone     string          `json:"clientPhone,omitempty"`
	ClientAddress   string          `json:"clientAddress,omitempty"`
	ClientVat       string          `json:"clientVat,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VatAmount       decimal.Decimal `json:"vatAmount"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Status          InvoiceStatus   `json:"status"`
	DateCreated     time.Time       `json:"dateCreated"`
	DateDue         *time.Time      `json:"dateDue,omitempty"`
	DatePerformance *time.Time      `json:"datePerformance,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	VariableSymbol  string          `json:"variableSymbol,omitempty"`
	PDFPath         string          `json:"pdfPath,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// EffectiveStatus shows an issued invoice past its due date as overdue.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceIssued && i.DateDue != nil && now.After(*i.DateDue) {
		return InvoiceOverdue
	}
	return i.Status
}

type InvoiceItem struct {
	ID          string          `json:"id,omitempty"`
	InvoiceID   string          `json:"invoiceId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VatRate     decimal.Decimal `json:"vatRate"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}
