package email

import "context"

// Template names shipped in templates/.
const (
	TemplateInviteMember    = "invite_member"
	TemplateEventReminder   = "event_reminder"
	TemplateAnnouncementNew = "announcement_new"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error
}

// NoOpProvider drops mail on the floor. Used when SMTP is not configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	return nil
}
