package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/replykit/pkg/email"
	"github.com/dmitrymomot/replykit/pkg/logger"
)

// Notifier sends billing lifecycle emails.
//
// Every send is best-effort: delivery failures are logged and swallowed so a
// mail provider outage can never block or roll back a completed payment.
type Notifier struct {
	sender email.EmailSender
	log    *slog.Logger
}

// NewNotifier creates a notifier. A nil sender disables all sends.
func NewNotifier(sender email.EmailSender, log *slog.Logger) *Notifier {
	return &Notifier{sender: sender, log: log}
}

// PurchaseConfirmed notifies the user that a one-off purchase completed.
func (n *Notifier) PurchaseConfirmed(ctx context.Context, sendTo, itemName string) {
	n.send(ctx, email.SendEmailParams{
		SendTo:  sendTo,
		Subject: "Your purchase is confirmed",
		BodyHTML: fmt.Sprintf(
			"<p>Thanks for your purchase!</p><p><strong>%s</strong> is now available in your account.</p>",
			itemName),
		Tag: "purchase-confirmed",
	})
}

// SubscriptionActivated notifies the user that premium is on.
func (n *Notifier) SubscriptionActivated(ctx context.Context, sendTo string) {
	n.send(ctx, email.SendEmailParams{
		SendTo:   sendTo,
		Subject:  "Welcome to Premium",
		BodyHTML: "<p>Your premium subscription is active. Monthly limits no longer apply to your account.</p>",
		Tag:      "subscription-activated",
	})
}

// SubscriptionCanceled notifies the user that premium has ended.
func (n *Notifier) SubscriptionCanceled(ctx context.Context, sendTo string) {
	n.send(ctx, email.SendEmailParams{
		SendTo:   sendTo,
		Subject:  "Your subscription has ended",
		BodyHTML: "<p>Your premium subscription has ended and your account is back on the free plan. You can resubscribe at any time.</p>",
		Tag:      "subscription-canceled",
	})
}

func (n *Notifier) send(ctx context.Context, params email.SendEmailParams) {
	if n.sender == nil || params.SendTo == "" {
		return
	}
	if err := n.sender.SendEmail(ctx, params); err != nil {
		n.log.WarnContext(ctx, "billing notification not delivered",
			logger.Error(err), slog.String("tag", params.Tag))
	}
}
