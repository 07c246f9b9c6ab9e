// Package mail renders the account emails and hands them to a Sender:
// SES, the RabbitMQ mail queue or the log.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	welcomeSubject  = "Welcome to Crazi Co!"
	otpSubject      = "Crazi Co verification code."
	passwordSubject = "Crazi Co password."
)

// Message is one rendered email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Mailer composes the welcome, verification code and generated password
// emails.
type Mailer struct {
	Sender     Sender
	Source     string
	ClientURL  string
	OTPMinutes int
}

func NewMailer(s Sender, source, clientURL string, otpMinutes int) *Mailer {
	return &Mailer{Sender: s, Source: source, ClientURL: strings.TrimRight(clientURL, "/"), OTPMinutes: otpMinutes}
}

// ActivationURL is the client page that completes activation.
func (m *Mailer) ActivationURL(to, code, userID, token string) string {
	q := url.Values{}
	q.Set("email", to)
	q.Set("code", code)
	q.Set("user_id", userID)
	q.Set("user_token", token)
	return m.ClientURL + "/auth/email/activate?" + q.Encode()
}

func (m *Mailer) Welcome(ctx context.Context, to, code, userID, token string) error {
	link := m.ActivationURL(to, code, userID, token)
	text := fmt.Sprintf("Welcome to Crazi Co. To finish setting up your account, confirm your email address by clicking the following link - %s.\n\n"+
		"This code will expire in %d minutes for your security. If you didn't request this email, there's nothing to worry about, you can safely ignore it.",
		link, m.OTPMinutes)
	return m.send(ctx, to, welcomeSubject, text, "welcome.html", map[string]interface{}{
		"URL": link, "Code": code, "Minutes": m.OTPMinutes,
	})
}

func (m *Mailer) OTP(ctx context.Context, to, code string) error {
	text := fmt.Sprintf("Here's your Crazi Co verification code. Enter it in the app to continue - %s.\n\n"+
		"This code will expire in %d minutes for your security. If you didn't request this email, there's nothing to worry about, you can safely ignore it.",
		code, m.OTPMinutes)
	return m.send(ctx, to, otpSubject, text, "otp.html", map[string]interface{}{
		"Code": code, "Minutes": m.OTPMinutes,
	})
}

func (m *Mailer) Password(ctx context.Context, to, password string) error {
	text := fmt.Sprintf("Welcome to Crazi Co. Here's your auto-generated password, use it to login to your account - %s.\n\n"+
		"For security, please change this password after your first login. If you didn't request this account creation, please write to us at support@crazi.co.",
		password)
	return m.send(ctx, to, passwordSubject, text, "password.html", map[string]interface{}{
		"Password": password,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, text, tmpl string, data interface{}) error {
	var html bytes.Buffer
	if err := templates.ExecuteTemplate(&html, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	return m.Sender.Send(ctx, Message{
		From:    m.Source,
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    html.String(),
	})
}
