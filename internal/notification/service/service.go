package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gigportal_backend/internal/events"
	"gigportal_backend/internal/notification/repository"
	"gigportal_backend/platform/logger"
)

// EmailSender delivers one rendered notification. Implemented by the email
// module; nil disables delivery (outbox rows still accumulate).
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

// Service is the notification dispatcher. It listens to domain events,
// enriches them at emission time and writes deduplicated outbox rows.
// Delivery happens asynchronously in the scheduler worker. A failure
// anywhere in here is logged and swallowed: notifications never affect the
// financial transaction that produced the event.
type Service struct {
	outbox    repository.Store
	directory repository.Directory
	sender    EmailSender
	log       *logger.Logger
}

// New creates the notification service.
func New(outbox repository.Store, directory repository.Directory, log *logger.Logger) *Service {
	return &Service{outbox: outbox, directory: directory, log: log}
}

// SetEmailSender injects the delivery channel (set after construction).
func (s *Service) SetEmailSender(sender EmailSender) {
	s.sender = sender
}

// Subscribe registers the dispatcher on the event bus for the full billing
// event vocabulary.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.ProjectActivated{}.EventName(), events.HandlerFunc(s.onProjectActivated))
	bus.Subscribe(events.TaskApproved{}.EventName(), events.HandlerFunc(s.onTaskApproved))
	bus.Subscribe(events.UpfrontPaymentExecuted{}.EventName(), events.HandlerFunc(s.onUpfrontPayment))
	bus.Subscribe(events.InvoicePaid{}.EventName(), events.HandlerFunc(s.onInvoicePaid))
	bus.Subscribe(events.FinalPaymentExecuted{}.EventName(), events.HandlerFunc(s.onFinalPayment))
	bus.Subscribe(events.ProjectCompleted{}.EventName(), events.HandlerFunc(s.onProjectCompleted))
	bus.Subscribe(events.RatingPrompt{}.EventName(), events.HandlerFunc(s.onRatingPrompt))
}

func (s *Service) onProjectActivated(ctx context.Context, e events.Event) error {
	event, ok := e.(events.ProjectActivated)
	if !ok {
		return nil
	}
	commissioner, freelancer := s.parties(ctx, event.CommissionerID, event.FreelancerID)

	s.enqueue(ctx, repository.Notification{
		Type:        "project_activated",
		Audience:    repository.AudienceFreelancer,
		ProjectID:   event.ProjectID,
		RecipientID: event.FreelancerID,
		Subject:     "Your project has started",
		Body: fmt.Sprintf("%s activated a project with you. Budget: %s across %d tasks (%s invoicing).",
			commissioner, formatCents(event.TotalBudgetCents), event.TotalTasks, event.InvoicingMethod),
	})
	s.enqueue(ctx, repository.Notification{
		Type:        "project_activated",
		Audience:    repository.AudienceCommissioner,
		ProjectID:   event.ProjectID,
		RecipientID: event.CommissionerID,
		Subject:     "Project activated",
		Body: fmt.Sprintf("Your project with %s is now active. Budget: %s.",
			freelancer, formatCents(event.TotalBudgetCents)),
	})
	return nil
}

func (s *Service) onTaskApproved(ctx context.Context, e events.Event) error {
	event, ok := e.(events.TaskApproved)
	if !ok {
		return nil
	}
	commissioner, _ := s.parties(ctx, event.CommissionerID, event.FreelancerID)

	s.enqueue(ctx, repository.Notification{
		Type:          "task_approved",
		Audience:      repository.AudienceFreelancer,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.TaskID.String(), // per-task dedup within the project
		RecipientID:   event.FreelancerID,
		Subject:       "Task approved",
		Body:          fmt.Sprintf("%s approved your task.", commissioner),
	})
	return nil
}

func (s *Service) onUpfrontPayment(ctx context.Context, e events.Event) error {
	event, ok := e.(events.UpfrontPaymentExecuted)
	if !ok {
		return nil
	}
	_, freelancer := s.parties(ctx, event.CommissionerID, event.FreelancerID)

	s.enqueue(ctx, repository.Notification{
		Type:          "upfront_payment",
		Audience:      repository.AudienceCommissioner,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.InvoiceNumber,
		RecipientID:   event.CommissionerID,
		Subject:       "Upfront payment processed",
		Body: fmt.Sprintf("The upfront payment of %s to %s was processed (invoice %s).",
			formatCents(event.AmountCents), freelancer, event.InvoiceNumber),
	})
	s.enqueue(ctx, repository.Notification{
		Type:          "upfront_payment",
		Audience:      repository.AudienceFreelancer,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.InvoiceNumber,
		RecipientID:   event.FreelancerID,
		Subject:       "Upfront payment received",
		Body: fmt.Sprintf("You received an upfront payment of %s (invoice %s).",
			formatCents(event.AmountCents), event.InvoiceNumber),
	})
	return nil
}

func (s *Service) onInvoicePaid(ctx context.Context, e events.Event) error {
	event, ok := e.(events.InvoicePaid)
	if !ok {
		return nil
	}

	s.enqueue(ctx, repository.Notification{
		Type:          "invoice_paid",
		Audience:      repository.AudienceCommissioner,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.InvoiceNumber,
		RecipientID:   event.CommissionerID,
		Subject:       "Invoice " + event.InvoiceNumber + " paid",
		Body: fmt.Sprintf("Invoice %s (%s) for %s has been settled.",
			event.InvoiceNumber, event.InvoiceKind, formatCents(event.TotalAmountCents)),
	})
	s.enqueue(ctx, repository.Notification{
		Type:          "invoice_paid",
		Audience:      repository.AudienceFreelancer,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.InvoiceNumber,
		RecipientID:   event.FreelancerID,
		Subject:       "Payout received",
		Body: fmt.Sprintf("%s from invoice %s was credited to your wallet.",
			formatCents(event.FreelancerCents), event.InvoiceNumber),
	})
	return nil
}

func (s *Service) onFinalPayment(ctx context.Context, e events.Event) error {
	event, ok := e.(events.FinalPaymentExecuted)
	if !ok {
		return nil
	}
	_, freelancer := s.parties(ctx, event.CommissionerID, event.FreelancerID)

	s.enqueue(ctx, repository.Notification{
		Type:          "final_payment",
		Audience:      repository.AudienceCommissioner,
		ProjectID:     event.ProjectID,
		InvoiceNumber: event.InvoiceNumber,
		RecipientID:   event.CommissionerID,
		Subject:       "Final payout released",
		Body: fmt.Sprintf("The final payout of %s to %s was released (invoice %s).",
			formatCents(event.AmountCents), freelancer, event.InvoiceNumber),
	})
	return nil
}

func (s *Service) onProjectCompleted(ctx context.Context, e events.Event) error {
	event, ok := e.(events.ProjectCompleted)
	if !ok {
		return nil
	}

	for _, party := range []struct {
		audience  repository.Audience
		recipient uuid.UUID
	}{
		{repository.AudienceCommissioner, event.CommissionerID},
		{repository.AudienceFreelancer, event.FreelancerID},
	} {
		s.enqueue(ctx, repository.Notification{
			Type:        "project_completed",
			Audience:    party.audience,
			ProjectID:   event.ProjectID,
			RecipientID: party.recipient,
			Subject:     "Project completed",
			Body: fmt.Sprintf("The project is complete. Total paid out: %s.",
				formatCents(event.PaidToDateCents)),
		})
	}
	return nil
}

func (s *Service) onRatingPrompt(ctx context.Context, e events.Event) error {
	event, ok := e.(events.RatingPrompt)
	if !ok {
		return nil
	}
	commissioner, freelancer := s.parties(ctx, event.CommissionerID, event.FreelancerID)

	s.enqueue(ctx, repository.Notification{
		Type:        "rating_prompt",
		Audience:    repository.AudienceCommissioner,
		ProjectID:   event.ProjectID,
		RecipientID: event.CommissionerID,
		Subject:     "How was working with " + freelancer + "?",
		Body:        "Your project is complete. Take a moment to rate your freelancer.",
	})
	s.enqueue(ctx, repository.Notification{
		Type:        "rating_prompt",
		Audience:    repository.AudienceFreelancer,
		ProjectID:   event.ProjectID,
		RecipientID: event.FreelancerID,
		Subject:     "How was working with " + commissioner + "?",
		Body:        "Your project is complete. Take a moment to rate your commissioner.",
	})
	return nil
}

// DispatchPending delivers queued notifications. Called from the scheduler
// worker. Returns the number delivered.
func (s *Service) DispatchPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	var sent int
	for _, n := range pending {
		if err := s.deliver(ctx, n); err != nil {
			s.log.Error("notification delivery failed",
				"notification_id", n.ID.String(), "type", n.Type, "error", err.Error())
			if markErr := s.outbox.MarkFailed(ctx, n.ID); markErr != nil {
				s.log.Error("failed to mark notification failed",
					"notification_id", n.ID.String(), "error", markErr.Error())
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, n.ID); err != nil {
			s.log.Error("failed to mark notification sent",
				"notification_id", n.ID.String(), "error", err.Error())
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, n repository.Notification) error {
	if s.sender == nil {
		return fmt.Errorf("no email sender configured")
	}
	recipient, err := s.directory.GetUser(ctx, n.RecipientID)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, recipient.Email, recipient.Name, n.Subject, n.Body)
}

// enqueue writes one outbox row; duplicates and errors are logged, never
// returned, so a notification problem cannot surface into the caller.
func (s *Service) enqueue(ctx context.Context, n repository.Notification) {
	inserted, err := s.outbox.Enqueue(ctx, n)
	if err != nil {
		s.log.Error("failed to enqueue notification",
			"type", n.Type, "project_id", n.ProjectID.String(), "error", err.Error())
		return
	}
	if !inserted {
		s.log.Debug("duplicate notification dropped",
			"type", n.Type, "project_id", n.ProjectID.String(), "audience", string(n.Audience))
	}
}

// parties resolves both display names, falling back to a neutral label so
// enrichment failures never block the notification.
func (s *Service) parties(ctx context.Context, commissionerID, freelancerID uuid.UUID) (string, string) {
	commissioner := "the commissioner"
	if u, err := s.directory.GetUser(ctx, commissionerID); err == nil {
		commissioner = u.Name
	}
	freelancer := "the freelancer"
	if u, err := s.directory.GetUser(ctx, freelancerID); err == nil {
		freelancer = u.Name
	}
	return commissioner, freelancer
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
