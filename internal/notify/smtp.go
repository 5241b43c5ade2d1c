package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/platform/config"
	"donation-gateway/pkg/email"
)

// SMTPNotifier sends mail through a plain SMTP relay with PLAIN auth.
type SMTPNotifier struct {
	cfg config.SMTP
	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP constructs an SMTP-backed notifier.
func NewSMTP(cfg config.SMTP) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *SMTPNotifier) SendReceipt(ctx context.Context, donation *models.Donation, receiptHTML string) error {
	subject := fmt.Sprintf("Your donation receipt (%s)", donation.PaymentReference)
	return n.deliver(ctx, donation.DonorInfo.Email, subject, receiptHTML)
}

func (n *SMTPNotifier) SendThankYou(ctx context.Context, donation *models.Donation) error {
	name := donation.DonorInfo.Name
	if name == "" {
		name = email.DisplayName(donation.DonorInfo.Email)
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Thank you for your generous donation of ₹%.2f. "+
			"Your support makes our work possible.</p>",
		name, donation.Amount)
	return n.deliver(ctx, donation.DonorInfo.Email, "Thank you for your donation", body)
}

func (n *SMTPNotifier) SendAdminAlert(ctx context.Context, donation *models.Donation) error {
	if n.cfg.AdminEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"<p>Donation %s completed.</p><ul><li>Type: %s</li><li>Amount: ₹%.2f</li>"+
			"<li>Donor: %s &lt;%s&gt;</li><li>Reference: %s</li></ul>",
		donation.ID, donation.Type, donation.Amount,
		donation.DonorInfo.Name, donation.DonorInfo.Email, donation.PaymentReference)
	return n.deliver(ctx, n.cfg.AdminEmail, "Donation received", body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("no recipient address")
	}

	msg := []byte(
		"From: " + n.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			htmlBody)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
