package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	gomail "github.com/wneessen/go-mail"

	"github.com/nkiryanov/seatpass/internal/logger"
)

const resetSubject = "Reset your password"

const resetText = `You requested a password reset.

Open the link below to set a new password. The link expires in 15 minutes.

%s

If you did not request it, just ignore this email.
`

var resetHTML = template.Must(template.New("reset").Parse(`<p>You requested a password reset.</p>
<p><a href="{{.}}">Reset your password</a></p>
<p>The link expires in 15 minutes. If you did not request it, just ignore this email.</p>
`))

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends emails through SMTP server
type SMTPMailer struct {
	cfg  SMTPConfig
	opts []gomail.Option
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}

	opts := []gomail.Option{gomail.WithTLSPolicy(gomail.TLSOpportunistic)}
	if cfg.Port != 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	return &SMTPMailer{cfg: cfg, opts: opts}, nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to string, resetURL string) error {
	msg, err := m.resetMessage(to, resetURL)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(m.cfg.Host, m.opts...)
	if err != nil {
		return fmt.Errorf("can't create smtp client. Err: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("can't send email. Err: %w", err)
	}
	return nil
}

func (m *SMTPMailer) resetMessage(to string, resetURL string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("bad from address. Err: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("bad recipient address. Err: %w", err)
	}
	msg.Subject(resetSubject)

	var html bytes.Buffer
	if err := resetHTML.Execute(&html, resetURL); err != nil {
		return nil, fmt.Errorf("can't render email. Err: %w", err)
	}

	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(resetText, resetURL))
	msg.AddAlternativeString(gomail.TypeTextHTML, html.String())

	return msg, nil
}

// LogMailer records that a reset email would be sent, without the link secret.
// Used in development when SMTP is not configured
type LogMailer struct {
	Logger logger.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, to string, resetURL string) error {
	m.Logger.Warn("SMTP not configured, reset email not sent", "to", to, "reset_page", redactLink(resetURL))
	return nil
}

// redactLink drops query and fragment where the reset token travels
func redactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String()
}
