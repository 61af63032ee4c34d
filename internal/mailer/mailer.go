package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// Mailer composes and delivers the customer-facing emails. Delivery results
// are reported to the caller and logged; nothing is persisted.
type Mailer interface {
	SendOrderConfirmation(order *models.Order, statusLink string) error
	SendStatusLinks(email string, orders []models.Order, linkFor func(models.Order) string) error
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// New returns an SMTP mailer, or a log-only mailer when SMTP is not
// configured (development default).
func New(cfg Config) Mailer {
	if cfg.Host == "" {
		slog.Warn("SMTP_HOST not set; emails will only be logged")
		return &logMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg Config
}

func (m *smtpMailer) send(to, subject, htmlBody string) error {
	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		htmlBody)

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	slog.Info("Sending email", "to", to, "subject", subject)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		slog.Error("Failed to send email", "to", to, "error", err)
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (m *smtpMailer) SendOrderConfirmation(order *models.Order, statusLink string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Merci pour votre commande !</h1>")
	fmt.Fprintf(&b, "<p>Référence : <strong>%s</strong></p>", order.Reference)
	fmt.Fprintf(&b, "<ul>")
	for _, li := range order.LineItems {
		fmt.Fprintf(&b, "<li>%s — %s ×%d (%.2f €)</li>", li.FileName, li.ItemType, li.Quantity, li.Amount())
	}
	fmt.Fprintf(&b, "</ul>")
	fmt.Fprintf(&b, "<p>Total : <strong>%.2f €</strong></p>", order.TotalAmount())
	fmt.Fprintf(&b, `<p><a href="%s">Suivre ma commande</a></p>`, statusLink)

	return m.send(order.Customer.Email, "Confirmation de commande "+order.Reference, b.String())
}

func (m *smtpMailer) SendStatusLinks(email string, orders []models.Order, linkFor func(models.Order) string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Vos commandes</h1><ul>")
	for _, o := range orders {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a> — %s</li>`, linkFor(o), o.Reference, o.Status)
	}
	fmt.Fprintf(&b, "</ul>")

	return m.send(email, "Suivi de vos commandes photos", b.String())
}

// logMailer stands in when SMTP is unconfigured, mirroring what a real send
// would do into the log so development flows stay testable.
type logMailer struct{}

func (m *logMailer) SendOrderConfirmation(order *models.Order, statusLink string) error {
	slog.Info("==========================================")
	slog.Info("📧 EMAIL TO: " + order.Customer.Email)
	slog.Info("Subject: Confirmation de commande " + order.Reference)
	slog.Info("Status link: " + statusLink)
	slog.Info("==========================================")
	return nil
}

func (m *logMailer) SendStatusLinks(email string, orders []models.Order, linkFor func(models.Order) string) error {
	slog.Info("==========================================")
	slog.Info("📧 EMAIL TO: " + email)
	for _, o := range orders {
		slog.Info("Order " + o.Reference + ": " + linkFor(o))
	}
	slog.Info("==========================================")
	return nil
}
