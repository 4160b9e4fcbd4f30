// Package email sends operator alert mail over SMTP.
package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"paysweep/internal/application/payment/usecases"
	sharedConfig "paysweep/internal/shared/config"
	"paysweep/internal/shared/logger"
)

// AlertNotifier emails the operator when money is moved out-of-band or the
// sweep goes unhealthy. It implements usecases.OperatorNotifier.
type AlertNotifier struct {
	config sharedConfig.EmailConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewAlertNotifier(config sharedConfig.EmailConfig, logger logger.Interface) *AlertNotifier {
	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)

	return &AlertNotifier{
		config: config,
		dialer: dialer,
		logger: logger,
	}
}

var _ usecases.OperatorNotifier = (*AlertNotifier)(nil)

func (n *AlertNotifier) NotifyForcedRefund(ctx context.Context, alert usecases.RefundAlert) error {
	subject := fmt.Sprintf("Forced wallet refund: order %s", alert.TradeNo)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Forced Wallet Refund</h2>
			<p>The reconciliation sweep refunded an order to the user's wallet.</p>
			<ul>
				<li>Trade No: %s</li>
				<li>User ID: %d</li>
				<li>Amount: %d</li>
				<li>Reason: %s</li>
				<li>New Balance: %d</li>
			</ul>
			<p>Please review the gateway panel to confirm the money trail.</p>
		</body>
		</html>
	`, alert.TradeNo, alert.UserID, alert.Amount, alert.Reason, alert.NewBalance)

	plainBody := fmt.Sprintf(`Forced Wallet Refund

The reconciliation sweep refunded an order to the user's wallet.

Trade No:    %s
User ID:     %d
Amount:      %d
Reason:      %s
New Balance: %d

Please review the gateway panel to confirm the money trail.
`, alert.TradeNo, alert.UserID, alert.Amount, alert.Reason, alert.NewBalance)

	return n.sendEmail(subject, htmlBody, plainBody)
}

func (n *AlertNotifier) NotifySweepUnhealthy(ctx context.Context, variant, detail string) error {
	subject := fmt.Sprintf("Payment sweep unhealthy: %s", variant)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment Sweep Unhealthy</h2>
			<p>Variant: %s</p>
			<p>%s</p>
		</body>
		</html>
	`, variant, detail)

	plainBody := fmt.Sprintf(`Payment Sweep Unhealthy

Variant: %s
%s
`, variant, detail)

	return n.sendEmail(subject, htmlBody, plainBody)
}

func (n *AlertNotifier) sendEmail(subject, htmlBody, plainBody string) error {
	if n.config.AdminAddress == "" {
		n.logger.Warnw("no admin address configured, dropping alert", "subject", subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(n.config.FromAddress, n.config.FromName))
	m.SetHeader("To", n.config.AdminAddress)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
