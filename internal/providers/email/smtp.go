package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg  Config
	tmpl *template.Template
}

func NewSMTP(cfg Config) (*SMTPProvider, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &SMTPProvider{cfg: cfg, tmpl: tmpl}, nil
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return p.Send(ctx, to, subjectFor(templateName, data), body.String())
}

func subjectFor(templateName string, data interface{}) string {
	dataMap, _ := data.(map[string]interface{})
	if dataMap != nil {
		if subj, ok := dataMap["subject"].(string); ok && subj != "" {
			return subj
		}
	}

	switch templateName {
	case TemplateInviteMember:
		if orgName, ok := dataMap["org_name"].(string); ok && orgName != "" {
			return fmt.Sprintf("You're invited to join %s", orgName)
		}
		return "You're invited to join an organization"
	case TemplateEventReminder:
		return "Upcoming event reminder"
	case TemplateAnnouncementNew:
		return "New announcement"
	}
	return "Notification from Commune"
}
