// internal/workers/communication/send-invoice-email/handler.go
package sendinvoiceemail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drclean-workers/internal/common/aws"
	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/validation"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-invoice-email"
)

var (
	ErrInvalidInput     = errors.New("INVALID_INPUT")
	ErrInvoiceNotFound  = errors.New("INVOICE_NOT_FOUND")
	ErrQueryFailed      = errors.New("QUERY_EXECUTION_FAILED")
	ErrNotificationSend = errors.New("NOTIFICATION_SEND_FAILED")
)

type Store interface {
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
}

// Mailer is satisfied by *aws.SESClient.
type Mailer interface {
	Send(ctx context.Context, email aws.Email) (string, error)
}

type Handler struct {
	config *Config
	store  Store
	mailer Mailer
	runner *camunda.Runner
	logger logger.Logger
}

func NewHandler(config *Config, store Store, mailer Mailer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		mailer: mailer,
		runner: camunda.NewRunner(TaskType, config.Timeout, log),
		logger: log,
	}
}

func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	inv, err := h.store.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, input.InvoiceID)
		}
		return nil, fmt.Errorf("%w: load invoice: %v", ErrQueryFailed, err)
	}

	recipient := strings.TrimSpace(input.Email)
	if recipient == "" {
		recipient = strings.TrimSpace(inv.ClientEmail)
	}
	if !validation.ValidateEmail(recipient) {
		return nil, fmt.Errorf("%w: invoice %s has no valid recipient %q", ErrInvalidInput, inv.InvoiceNumber, recipient)
	}

	view := invoiceView{
		ClientName: inv.ClientName,
		Number:     inv.InvoiceNumber,
		PDFURL:     h.pdfURL(inv),
		FileName:   fileName(inv.InvoiceNumber),
		Total:      inv.Total.StringFixed(2),
	}
	if inv.DateDue != nil {
		view.DueDate = inv.DateDue.Format("2.1.2006")
	}
	html, err := renderHTML(view)
	if err != nil {
		return nil, fmt.Errorf("%w: render email: %v", ErrNotificationSend, err)
	}

	subject := fmt.Sprintf("Faktura č. %s - Dr.Clean", inv.InvoiceNumber)
	messageID, err := h.mailer.Send(ctx, aws.Email{
		To:      []string{recipient},
		Subject: subject,
		HTML:    html,
		Text:    renderText(view),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotificationSend, err)
	}

	h.logger.Info("invoice email sent", map[string]interface{}{
		"invoiceId": inv.ID,
		"number":    inv.InvoiceNumber,
		"messageId": messageID,
	})
	return &Output{
		MessageID: messageID,
		Recipient: recipient,
		PDFURL:    view.PDFURL,
		Subject:   subject,
	}, nil
}

func fileName(number string) string {
	return "Faktura_" + number + ".pdf"
}

// pdfURL prefers the stored path. Relative paths and invoices without a
// stored PDF resolve against the configured base URL.
func (h *Handler) pdfURL(inv models.Invoice) string {
	path := inv.PDFPath
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	if path == "" {
		path = fileName(inv.InvoiceNumber)
	}
	return strings.TrimRight(h.config.PDFBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
