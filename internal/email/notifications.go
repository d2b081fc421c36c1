package email

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"riverway/internal/config"
	"riverway/internal/models"
)

// NotificationStore records outbound notifications and finds staff inboxes.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotification(ctx context.Context, id int64, sent bool) error
	GetStaffEmails(ctx context.Context) ([]string, error)
}

// Notifier sends email notifications for chat and order events. Every
// attempted send is recorded in the notification store.
type Notifier struct {
	sender    Sender
	enabled   bool
	templates *Templates
	cfg       *config.Config
	db        NotificationStore
	logger    *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, db NotificationStore, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := NewService(cfg, logger)
	return &Notifier{
		sender:    service,
		enabled:   service.IsEnabled(),
		templates: NewTemplates(cfg),
		cfg:       cfg,
		db:        db,
		logger:    logger.Named("notifier"),
		now:       time.Now,
	}
}

// IsEnabled reports whether emails are actually sent.
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// Wait blocks until background sends have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// supportRecipients is the chatbot inbox, or every staff member when none is
// configured.
func (n *Notifier) supportRecipients(ctx context.Context) []string {
	if n.cfg.ChatbotEmail != "" {
		return []string{n.cfg.ChatbotEmail}
	}
	emails, err := n.db.GetStaffEmails(ctx)
	if err != nil {
		n.logger.Error("failed to get staff emails", zap.Error(err))
		return nil
	}
	return emails
}

// deliver records one notification per recipient, sends the mail and marks
// each record sent or failed.
func (n *Notifier) deliver(ctx context.Context, base models.Notification, to []string, subject, htmlBody, textBody string) error {
	ids := make([]int64, 0, len(to))
	for _, rcpt := range to {
		rec := base
		rec.Channel = "email"
		rec.Recipient = rcpt
		rec.Subject = subject
		if err := n.db.CreateNotification(ctx, &rec); err != nil {
			n.logger.Warn("failed to record notification", zap.Error(err), zap.String("recipient", rcpt))
			continue
		}
		ids = append(ids, rec.ID)
	}

	sendErr := n.sender.Send(to, subject, htmlBody, textBody)
	if sendErr != nil {
		n.logger.Error("failed to send email", zap.Error(sendErr), zap.Strings("to", to), zap.String("subject", subject))
	} else {
		n.logger.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	}

	for _, id := range ids {
		if err := n.db.MarkNotification(ctx, id, sendErr == nil); err != nil {
			n.logger.Warn("failed to update notification", zap.Error(err), zap.Int64("notification_id", id))
		}
	}
	return sendErr
}

// async runs fn in the background, detached from the request context.
func (n *Notifier) async(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn(ctx)
	}()
}

// NotifyEscalation alerts support staff that a chat needs a human.
func (n *Notifier) NotifyEscalation(ctx context.Context, d EscalationDetails) {
	if !n.enabled || d.Session == nil {
		return
	}
	if d.At.IsZero() {
		d.At = n.now()
	}

	n.async(ctx, func(ctx context.Context) {
		to := n.supportRecipients(ctx)
		if len(to) == 0 {
			n.logger.Warn("no recipients for escalation alert", zap.String("session_id", d.Session.SessionID))
			return
		}
		subject, htmlBody, textBody := n.templates.EscalationAlert(d)
		sessionPK := d.Session.ID
		_ = n.deliver(ctx, models.Notification{
			UserID:           d.Session.UserID,
			SessionID:        &sessionPK,
			NotificationType: models.NotificationEscalation,
			Message:          "Chat escalated - " + d.Reason,
		}, to, subject, htmlBody, textBody)
	})
}

// NotifyContactRequest emails a contact-support form to the support inbox.
// Unlike the other notifications it is synchronous so the caller can tell
// the customer whether the request went out.
func (n *Notifier) NotifyContactRequest(ctx context.Context, req *models.ContactRequest) error {
	if !n.enabled {
		return ErrDisabled
	}
	to := n.supportRecipients(ctx)
	if len(to) == 0 {
		return ErrNoRecipients
	}
	subject, htmlBody, textBody := n.templates.ContactRequest(req, n.now())
	return n.deliver(ctx, models.Notification{
		NotificationType: models.NotificationContactRequest,
		Message:          req.Name + " <" + req.Email + ">: " + req.Description,
	}, to, subject, htmlBody, textBody)
}

// NotifyOrderPlaced sends the customer an order confirmation.
func (n *Notifier) NotifyOrderPlaced(ctx context.Context, order *models.Order) {
	if !n.enabled || order == nil || order.Email == "" {
		return
	}

	n.async(ctx, func(ctx context.Context) {
		subject, htmlBody, textBody := n.templates.OrderConfirmation(order)
		userID := order.UserID
		_ = n.deliver(ctx, models.Notification{
			UserID:           &userID,
			NotificationType: models.NotificationOrderStatus,
			Message:          subject,
		}, []string{order.Email}, subject, htmlBody, textBody)
	})
}
