package notify

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/platform/config"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingNotifier(cfg config.SMTP) (*SMTPNotifier, *[]capturedMail) {
	n := NewSMTP(cfg)
	var sent []capturedMail
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return n, &sent
}

func testSMTPConfig() config.SMTP {
	return config.SMTP{
		Host:       "mail.example.com",
		Port:       587,
		Username:   "mailer",
		Password:   "secret",
		From:       "donations@example.org",
		AdminEmail: "admin@example.org",
	}
}

func testDonation() *models.Donation {
	return &models.Donation{
		Type:             models.TypeGeneral,
		Amount:           500,
		DonorInfo:        models.DonorInfo{Name: "Jane Doe", Email: "jane@example.com"},
		PaymentReference: "MT123ABCDEF",
	}
}

func TestSendReceipt(t *testing.T) {
	n, sent := newCapturingNotifier(testSMTPConfig())
	require.NoError(t, n.SendReceipt(context.Background(), testDonation(), "<html>receipt</html>"))

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "mail.example.com:587", mail.addr)
	assert.Equal(t, []string{"jane@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Your donation receipt (MT123ABCDEF)")
	assert.Contains(t, mail.msg, "Content-Type: text/html")
	assert.Contains(t, mail.msg, "<html>receipt</html>")
}

func TestSendThankYouDerivesNameFromEmail(t *testing.T) {
	n, sent := newCapturingNotifier(testSMTPConfig())
	donation := testDonation()
	donation.DonorInfo.Name = ""
	donation.DonorInfo.Email = "jane.doe@example.com"

	require.NoError(t, n.SendThankYou(context.Background(), donation))
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "Dear Jane Doe")
}

func TestSendAdminAlert(t *testing.T) {
	t.Run("delivers to configured admin", func(t *testing.T) {
		n, sent := newCapturingNotifier(testSMTPConfig())
		require.NoError(t, n.SendAdminAlert(context.Background(), testDonation()))
		require.Len(t, *sent, 1)
		assert.Equal(t, []string{"admin@example.org"}, (*sent)[0].to)
	})

	t.Run("no-op without admin address", func(t *testing.T) {
		cfg := testSMTPConfig()
		cfg.AdminEmail = ""
		n, sent := newCapturingNotifier(cfg)
		require.NoError(t, n.SendAdminAlert(context.Background(), testDonation()))
		assert.Empty(t, *sent)
	})
}

func TestDeliverRequiresRecipient(t *testing.T) {
	n, _ := newCapturingNotifier(testSMTPConfig())
	donation := testDonation()
	donation.DonorInfo.Email = ""
	assert.Error(t, n.SendThankYou(context.Background(), donation))
}
