package service

import (
	"context"

	"github.com/google/uuid"

	"gigportal_backend/internal/wallet/repository"
	"gigportal_backend/internal/wallet/transport"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
)

// Service owns the freelancer wallet ledger. Billing credits it through the
// narrow Crediter surface; the wallet never reads or mutates invoices.
type Service struct {
	entries repository.Store
	log     *logger.Logger
}

// New creates the wallet service.
func New(entries repository.Store, log *logger.Logger) *Service {
	return &Service{entries: entries, log: log}
}

// Credit records a payout from a paid invoice.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error {
	if amountCents <= 0 {
		return apperr.Validation("credit amount must be positive")
	}
	return s.entries.Insert(ctx, repository.Entry{
		UserID:        userID,
		InvoiceNumber: &invoiceNumber,
		Kind:          repository.KindCredit,
		AmountCents:   amountCents,
	})
}

// Reverse compensates an earlier credit after a failed settlement step.
func (s *Service) Reverse(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error {
	if amountCents <= 0 {
		return apperr.Validation("reversal amount must be positive")
	}
	return s.entries.Insert(ctx, repository.Entry{
		UserID:        userID,
		InvoiceNumber: &invoiceNumber,
		Kind:          repository.KindReversal,
		AmountCents:   amountCents,
	})
}

// Withdraw records a withdrawal against the available balance.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, req transport.WithdrawRequest) (*transport.WalletResponse, error) {
	summary, err := s.entries.Summarize(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.AmountCents > summary.AvailableCents {
		return nil, apperr.Conflict("withdrawal exceeds available balance")
	}

	if err := s.entries.Insert(ctx, repository.Entry{
		UserID:      userID,
		Kind:        repository.KindWithdrawal,
		AmountCents: req.AmountCents,
	}); err != nil {
		return nil, err
	}

	summary.AvailableCents -= req.AmountCents
	summary.WithdrawnCents += req.AmountCents
	return toWalletResponse(summary), nil
}

// GetWallet returns the derived balances for a user.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*transport.WalletResponse, error) {
	summary, err := s.entries.Summarize(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toWalletResponse(summary), nil
}

// ListEntries returns the user's recent ledger lines.
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]transport.EntryResponse, error) {
	entries, err := s.entries.ListEntries(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]transport.EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.EntryResponse{
			ID:            e.ID,
			InvoiceNumber: e.InvoiceNumber,
			Kind:          string(e.Kind),
			AmountCents:   e.AmountCents,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out, nil
}

func toWalletResponse(s repository.Summary) *transport.WalletResponse {
	return &transport.WalletResponse{
		AvailableCents:      s.AvailableCents,
		LifetimeEarnedCents: s.LifetimeEarnedCents,
		WithdrawnCents:      s.WithdrawnCents,
	}
}
