// Package loyalty credits clients with points for paid invoices and keeps
// the cached balance in loyalty_credits consistent with the transaction
// history.
package loyalty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
)

// DefaultPointsPerCZK is the accrual rate used when none is configured.
const DefaultPointsPerCZK = 0.27

// Store is the persistence the loyalty service needs.
type Store interface {
	GetClient(ctx context.Context, clientID string) (models.Client, error)
	NetEarnedForBooking(ctx context.Context, clientID, bookingID string) (int64, error)
	GetCredits(ctx context.Context, clientID string) (*models.LoyaltyCredits, error)
	SaveCredits(ctx context.Context, credits models.LoyaltyCredits) error
	AddTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal) error
	AppendTransaction(ctx context.Context, tx models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, clientID string) ([]models.LoyaltyTransaction, error)
}

type Service struct {
	store        Store
	pointsPerCZK decimal.Decimal
	log          logger.Logger
	now          func() time.Time
}

func NewService(store Store, pointsPerCZK float64, log logger.Logger) *Service {
	if pointsPerCZK <= 0 {
		pointsPerCZK = DefaultPointsPerCZK
	}
	return &Service{
		store:        store,
		pointsPerCZK: decimal.NewFromFloat(pointsPerCZK),
		log:          log,
		now:          time.Now,
	}
}

// Points converts an invoice total to loyalty points, rounding half up.
func (s *Service) Points(total decimal.Decimal) int64 {
	return total.Mul(s.pointsPerCZK).Round(0).IntPart()
}

type AccrualResult struct {
	Points         int64  `json:"points"`
	ReferralBonus  bool   `json:"referralBonus"`
	ReferrerID     string `json:"referrerId,omitempty"`
	ReferrerPoints int64  `json:"referrerPoints,omitempty"`
	Skipped        string `json:"skipped,omitempty"`
}

// Accrue credits points for a paid invoice. A booking that already holds
// net earned points is skipped. The first paid invoice of a referred
// client doubles its points and rewards the referrer with the base amount.
func (s *Service) Accrue(ctx context.Context, clientID string, total decimal.Decimal, bookingID string) (AccrualResult, error) {
	var res AccrualResult
	base := s.Points(total)
	if base <= 0 {
		res.Skipped = "no_points"
		return res, nil
	}

	if bookingID != "" {
		held, err := s.store.NetEarnedForBooking(ctx, clientID, bookingID)
		if err != nil {
			return res, fmt.Errorf("check earned points: %w", err)
		}
		if held > 0 {
			s.log.Info("points already earned for booking", map[string]interface{}{
				"clientId":  clientID,
				"bookingId": bookingID,
			})
			res.Skipped = "already_earned"
			return res, nil
		}
	}

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return res, fmt.Errorf("load client: %w", err)
	}

	points := base
	firstInvoice := client.TotalSpent == 0
	if firstInvoice && client.ReferredByID != "" {
		points = base * 2
		res.ReferralBonus = true
		res.ReferrerID = client.ReferredByID
		res.ReferrerPoints = base

		if err := s.credit(ctx, client.ReferredByID, base); err != nil {
			return res, fmt.Errorf("credit referrer: %w", err)
		}
		if err := s.store.AppendTransaction(ctx, s.transaction(client.ReferredByID, base, models.LoyaltyEarned,
			fmt.Sprintf("Referral Bonus (1. úklid od %s)", client.Name), bookingID)); err != nil {
			return res, fmt.Errorf("record referral transaction: %w", err)
		}
	}

	if err := s.credit(ctx, clientID, points); err != nil {
		return res, fmt.Errorf("credit client: %w", err)
	}
	if err := s.store.AddTotalSpent(ctx, clientID, total); err != nil {
		return res, fmt.Errorf("update total spent: %w", err)
	}

	desc := fmt.Sprintf("Body za úklid (%s Kč)", FormatCZK(total))
	if res.ReferralBonus {
		desc = fmt.Sprintf("Bonus za první úklid (Doporučení) - %s Kč", FormatCZK(total))
	}
	if err := s.store.AppendTransaction(ctx, s.transaction(clientID, points, models.LoyaltyEarned, desc, bookingID)); err != nil {
		return res, fmt.Errorf("record transaction: %w", err)
	}

	res.Points = points
	return res, nil
}

type ReversalResult struct {
	Points int64 `json:"points"`
}

// Reverse cancels the points earned for a booking by appending a reversed
// row; history is never deleted. Balances are floored at zero.
func (s *Service) Reverse(ctx context.Context, clientID string, total decimal.Decimal, bookingID string) (ReversalResult, error) {
	var res ReversalResult
	if bookingID == "" {
		return res, nil
	}

	held, err := s.store.NetEarnedForBooking(ctx, clientID, bookingID)
	if err != nil {
		return res, fmt.Errorf("check earned points: %w", err)
	}
	if held <= 0 {
		return res, nil
	}

	credits, err := s.store.GetCredits(ctx, clientID)
	if err != nil {
		return res, fmt.Errorf("load credits: %w", err)
	}
	if credits != nil {
		c := *credits
		c.CurrentCredits = max(0, c.CurrentCredits-held)
		c.TotalEarned = max(0, c.TotalEarned-held)
		if err := s.store.SaveCredits(ctx, c); err != nil {
			return res, fmt.Errorf("save credits: %w", err)
		}
	}

	if err := s.store.AddTotalSpent(ctx, clientID, total.Neg()); err != nil {
		return res, fmt.Errorf("update total spent: %w", err)
	}
	if err := s.store.AppendTransaction(ctx, s.transaction(clientID, held, models.LoyaltyReversed,
		"Storno bodů za úklid", bookingID)); err != nil {
		return res, fmt.Errorf("record reversal: %w", err)
	}

	s.log.Info("loyalty points reversed", map[string]interface{}{
		"clientId":  clientID,
		"bookingId": bookingID,
		"points":    held,
	})
	res.Points = held
	return res, nil
}

// Recalculate rebuilds loyalty_credits from the transaction history.
// Legacy redeemed rows count as spent.
func (s *Service) Recalculate(ctx context.Context, clientID string) (models.LoyaltyCredits, error) {
	txs, err := s.store.ListTransactions(ctx, clientID)
	if err != nil {
		return models.LoyaltyCredits{}, fmt.Errorf("list transactions: %w", err)
	}

	credits := Balance(clientID, txs)
	if err := s.store.SaveCredits(ctx, credits); err != nil {
		return credits, fmt.Errorf("save credits: %w", err)
	}
	return credits, nil
}

// Balance folds a transaction history into credit totals.
func Balance(clientID string, txs []models.LoyaltyTransaction) models.LoyaltyCredits {
	c := models.LoyaltyCredits{ClientID: clientID}
	for _, tx := range txs {
		switch tx.Type {
		case models.LoyaltyEarned:
			c.TotalEarned += tx.Amount
		case models.LoyaltyReversed:
			c.TotalEarned -= tx.Amount
		case models.LoyaltySpent, models.LoyaltyRedeemed:
			c.TotalSpent += tx.Amount
		}
	}
	c.TotalEarned = max(0, c.TotalEarned)
	c.CurrentCredits = max(0, c.TotalEarned-c.TotalSpent)
	return c
}

func (s *Service) credit(ctx context.Context, clientID string, points int64) error {
	credits, err := s.store.GetCredits(ctx, clientID)
	if err != nil {
		return err
	}
	c := models.LoyaltyCredits{ClientID: clientID}
	if credits != nil {
		c = *credits
	}
	c.CurrentCredits += points
	c.TotalEarned += points
	return s.store.SaveCredits(ctx, c)
}

func (s *Service) transaction(clientID string, amount int64, kind models.LoyaltyTxType, desc, bookingID string) models.LoyaltyTransaction {
	tx := models.LoyaltyTransaction{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Amount:      amount,
		Type:        kind,
		Description: desc,
		CreatedAt:   s.now().UTC(),
	}
	if bookingID != "" {
		tx.RelatedJobID = &bookingID
	}
	return tx
}

// FormatCZK renders an amount the way Czech locale prints it: spaces
// between thousands and a decimal comma.
func FormatCZK(amount decimal.Decimal) string {
	s := amount.Round(2).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
