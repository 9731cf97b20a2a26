package model

import "time"

// CreditRate is the number of credits earned per kilogram deposited.
const CreditRate = 1.0

// AcceptedWasteType is the only waste type that earns credits. Compared case-insensitively.
const AcceptedWasteType = "recyclable plastics"

// CreditAccount is a user's credit balance.
type CreditAccount struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

// Deposit is a single deposit event.
type Deposit struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	WasteType string    `json:"waste_type"`
	WeightKg  float64   `json:"weight_kg"`
}

// DepositReceipt is returned for a successful deposit.
type DepositReceipt struct {
	UserID        string  `json:"user_id"`
	CreditsEarned float64 `json:"credits_earned"`
	NewBalance    float64 `json:"new_balance"`
}
