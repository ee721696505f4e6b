package models

import "time"

type LoyaltyTxType string

const (
	LoyaltyEarned LoyaltyTxType = "earned"
	LoyaltySpent  LoyaltyTxType = "spent"
	// written when a paid invoice is reopened; cancels earlier earned rows
	LoyaltyReversed LoyaltyTxType = "reversed"
	// legacy rows written by the redemption screen
	LoyaltyRedeemed LoyaltyTxType = "redeemed"
)

// LoyaltyTransaction rows are append-only; the balance is their signed sum.
type LoyaltyTransaction struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"clientId"`
	Amount       int64         `json:"amount"`
	Type         LoyaltyTxType `json:"type"`
	Description  string        `json:"description,omitempty"`
	RelatedJobID *string       `json:"relatedJobId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Signed returns the amount with the sign of its effect on the balance.
func (t LoyaltyTransaction) Signed() int64 {
	if t.Type == LoyaltyEarned {
		return t.Amount
	}
	return -t.Amount
}

type LoyaltyCredits struct {
	ClientID       string `json:"clientId"`
	CurrentCredits int64  `json:"currentCredits"`
	TotalEarned    int64  `json:"totalEarned"`
	TotalSpent     int64  `json:"totalSpent"`
}
