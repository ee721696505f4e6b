package models

import "time"

type Client struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	PostalCode   string    `json:"postalCode,omitempty"`
	ClientType   string    `json:"clientType,omitempty"`
	CompanyID    string    `json:"companyId,omitempty"`
	VatID        string    `json:"vatId,omitempty"`
	ReferredByID string    `json:"referredById,omitempty"`
	TotalSpent   float64   `json:"totalSpent"`
	CreatedAt    time.Time `json:"createdAt"`
}

type TeamMember struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Position   string  `json:"position,omitempty"`
	HourlyRate float64 `json:"hourlyRate,omitempty"`
	IsActive   bool    `json:"isActive"`
}
