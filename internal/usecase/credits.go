package usecase

import (
	"context"
	"fmt"

	"github.com/Stepanishin/telepublisher-be/internal/repository"
)

// CreditService is the credit-balance collaborator the executor and the
// payment webhooks consume. Balances never go below zero at the service
// level; the executor checks before debiting.
type CreditService struct {
	tenants repository.TenantRepository
}

func NewCreditService(tenants repository.TenantRepository) *CreditService {
	return &CreditService{tenants: tenants}
}

func (s *CreditService) Balance(ctx context.Context, tenantID string) (int, error) {
	return s.tenants.Balance(ctx, tenantID)
}

// Debit removes amount from the balance and adds it to the lifetime
// used counter.
func (s *CreditService) Debit(ctx context.Context, tenantID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return s.tenants.AdjustCredits(ctx, tenantID, -amount, amount)
}

// Credit adds amount back onto the balance (refunds, purchases).
func (s *CreditService) Credit(ctx context.Context, tenantID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return s.tenants.AdjustCredits(ctx, tenantID, amount, 0)
}
