package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/service"
)

// CreditLedger awards credits for accepted deposits and persists every change.
type CreditLedger struct {
	store     service.CreditStore
	persister service.CreditPersister
	logger    *slog.Logger
	persistMu sync.Mutex
}

// NewCreditLedger creates a ledger over the live store and its durable persister.
// A nil persister keeps balances in memory only.
func NewCreditLedger(store service.CreditStore, persister service.CreditPersister, logger *slog.Logger) *CreditLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreditLedger{store: store, persister: persister, logger: logger}
}

// Load seeds the live balances from the persister.
func (l *CreditLedger) Load(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	balances, err := l.persister.LoadCredits(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credits: %w", err)
	}
	if err := l.store.Replace(ctx, balances); err != nil {
		return fmt.Errorf("failed to seed credits: %w", err)
	}
	l.logger.Debug("credits loaded", "accounts", len(balances))
	return nil
}

// Deposit credits weightKg * model.CreditRate when wasteType is the accepted type.
// Rejected deposits leave every balance unchanged.
func (l *CreditLedger) Deposit(ctx context.Context, userID, wasteType string, weightKg float64) (model.DepositReceipt, error) {
	if !strings.EqualFold(strings.TrimSpace(wasteType), model.AcceptedWasteType) {
		return model.DepositReceipt{}, fmt.Errorf("%w: %q", common.ErrRejectedWasteType, wasteType)
	}
	if weightKg < 0 || math.IsNaN(weightKg) || math.IsInf(weightKg, 0) {
		return model.DepositReceipt{}, fmt.Errorf("%w: %v", common.ErrInvalidWeight, weightKg)
	}
	if strings.TrimSpace(userID) == "" {
		return model.DepositReceipt{}, common.NewUserError("user id is required", nil)
	}

	earned := weightKg * model.CreditRate
	balance, err := l.store.UpdateBalance(ctx, userID, func(current float64) (float64, error) {
		return current + earned, nil
	})
	if err != nil {
		return model.DepositReceipt{}, fmt.Errorf("failed to update balance: %w", err)
	}

	l.logger.Info("deposit credited", "user_id", userID, "credits", earned, "balance", balance)
	l.persist(ctx)

	return model.DepositReceipt{UserID: userID, CreditsEarned: earned, NewBalance: balance}, nil
}

// Balance returns the user's balance, 0 for unknown users.
func (l *CreditLedger) Balance(ctx context.Context, userID string) (float64, error) {
	return l.store.Balance(ctx, userID)
}

// persist writes the full ledger. The snapshot is taken under persistMu so the
// last write always includes every completed deposit. Failures are logged only.
func (l *CreditLedger) persist(ctx context.Context) {
	if l.persister == nil {
		return
	}
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	snapshot, err := l.store.Snapshot(ctx)
	if err != nil {
		common.LogError(l.logger, err, "failed to snapshot credits", nil)
		return
	}
	if err := l.persister.SaveCredits(ctx, snapshot); err != nil {
		common.LogError(l.logger, err, "failed to persist credits", common.Fields{"accounts": len(snapshot)})
	}
}
