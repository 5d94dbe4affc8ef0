package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mrlokans/bibliotheque/internal/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type emailData struct {
	Subject  string
	BaseURL  string
	Name     string
	Title    string
	Body     string
	Link     string
	Validity string
	Due      string
	Original *entities.ContactMessage
}

// Composer renders the library's emails. BaseURL prefixes every link.
type Composer struct {
	BaseURL string
}

func NewComposer(baseURL string) *Composer {
	return &Composer{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Composer) render(name, to string, data emailData) (Message, error) {
	data.BaseURL = c.BaseURL
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return Message{To: to, Subject: data.Subject, HTML: buf.String()}, nil
}

func (c *Composer) link(path string) string {
	return c.BaseURL + path
}

// ContactReply is sent to the author of a contact message once it is answered.
func (c *Composer) ContactReply(msg *entities.ContactMessage) (Message, error) {
	return c.render("contact_reply", msg.Email, emailData{
		Subject:  "Re: " + msg.Subject,
		Name:     msg.SenderName(),
		Original: msg,
	})
}

// AdminMessage carries a message written by an administrator to a user.
func (c *Composer) AdminMessage(user *entities.User, subject, body string) (Message, error) {
	return c.render("admin_message", user.Email, emailData{
		Subject: subject,
		Name:    user.DisplayName(),
		Body:    body,
		Link:    c.link("/contact/mine"),
	})
}

// Notification mirrors an in-app notification by email.
func (c *Composer) Notification(user *entities.User, title, message, path string) (Message, error) {
	data := emailData{
		Subject: title,
		Name:    user.DisplayName(),
		Title:   title,
		Body:    message,
	}
	if path != "" {
		data.Link = c.link(path)
	}
	return c.render("notification", user.Email, data)
}

func (c *Composer) PasswordReset(user *entities.User, token string, validity time.Duration) (Message, error) {
	return c.render("password_reset", user.Email, emailData{
		Subject:  "Réinitialisation de votre mot de passe",
		Name:     user.DisplayName(),
		Link:     c.link("/reset-password/" + token),
		Validity: validity.String(),
	})
}

func (c *Composer) TemporaryPassword(user *entities.User, password string) (Message, error) {
	return c.render("temporary_password", user.Email, emailData{
		Subject: "Votre mot de passe temporaire",
		Name:    user.DisplayName(),
		Body:    password,
	})
}

func (c *Composer) OverdueReminder(user *entities.User, loan *entities.Loan, title string) (Message, error) {
	return c.render("overdue_reminder", user.Email, emailData{
		Subject: "Rappel : « " + title + " » est en retard",
		Name:    user.DisplayName(),
		Title:   title,
		Due:     loan.DueAt.Format("02/01/2006"),
		Link:    c.link("/loans"),
	})
}
