// Package email delivers account notifications over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"net/url"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	FromName   string
	AppName    string
	AppBaseURL string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends verification codes and reset links. Delivery failures are
// logged and reported as false, never returned as errors.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
	logger *slog.Logger
}

func NewService(config Config, logger *slog.Logger) *Service {
	if config.AppName == "" {
		config.AppName = "IdeaFlow"
	}
	if logger == nil {
		logger = slog.Default()
	}
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
		logger: logger,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends an HTML email
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody, textBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-ideaflow"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type VerificationData struct {
	AppName string
	Code    string
}

type PasswordResetData struct {
	AppName  string
	ResetURL string
}

func (s *Service) SendVerificationCode(_ context.Context, to, code string) bool {
	data := VerificationData{AppName: s.config.AppName, Code: code}
	html, err := renderTemplate(verificationEmailTemplate, data)
	if err != nil {
		s.logger.Error("render verification template", "error", err)
		return false
	}
	subject := fmt.Sprintf("Your %s verification code", s.config.AppName)
	text := fmt.Sprintf("Your verification code is %s. It expires in 1 hour.", code)
	if err := s.SendHTMLEmail([]string{to}, subject, html, text); err != nil {
		s.logger.Error("send verification email", "to", to, "error", err)
		return false
	}
	return true
}

func (s *Service) SendPasswordReset(_ context.Context, to, token string) bool {
	resetURL := ResetURL(s.config.AppBaseURL, token)
	data := PasswordResetData{AppName: s.config.AppName, ResetURL: resetURL}
	html, err := renderTemplate(passwordResetEmailTemplate, data)
	if err != nil {
		s.logger.Error("render password reset template", "error", err)
		return false
	}
	subject := fmt.Sprintf("Reset your %s password", s.config.AppName)
	text := fmt.Sprintf("Reset your password: %s (expires in 1 hour)", resetURL)
	if err := s.SendHTMLEmail([]string{to}, subject, html, text); err != nil {
		s.logger.Error("send password reset email", "to", to, "error", err)
		return false
	}
	return true
}

// ResetURL builds the front-end link carrying a password reset token.
func ResetURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// LogSender records that a notification was issued without delivering it.
// Only selected explicitly (IDEAFLOW_NOTIFIER=log); secrets are redacted
// and logged at debug level.
type LogSender struct {
	Logger *slog.Logger
}

func (l LogSender) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l LogSender) SendVerificationCode(_ context.Context, to, code string) bool {
	l.logger().Debug("verification code issued", "to", to, "code", redact(code))
	return true
}

func (l LogSender) SendPasswordReset(_ context.Context, to, token string) bool {
	l.logger().Debug("password reset issued", "to", to, "token", redact(token))
	return true
}

// redact keeps a short prefix of long secrets so log lines can be told
// apart; short ones are masked entirely.
func redact(secret string) string {
	if len(secret) < 16 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const verificationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Verify your {{.AppName}} account</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #2f855a; padding-bottom: 10px; margin-bottom: 20px; }
        .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; background: #f0fff4; padding: 12px 24px; border-radius: 4px; display: inline-block; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <p>Use this code to verify your email address:</p>

    <p class="code">{{.Code}}</p>

    <p>The code expires in 1 hour.</p>

    <div class="footer">
        <p>If you didn't create an account with {{.AppName}}, you can safely ignore this email.</p>
    </div>
</body>
</html>`

const passwordResetEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reset your {{.AppName}} password</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #2f855a; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #2f855a; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .link { word-break: break-all; color: #2f855a; }
        .warning { background: #fff3cd; padding: 12px; border-radius: 4px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Password Reset Request</h2>

    <p>We received a request to reset your password. Click the button below to choose a new one:</p>

    <p>
        <a href="{{.ResetURL}}" class="button">Reset Password</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.ResetURL}}</p>

    <div class="warning">
        <strong>Important:</strong> This reset link will expire in 1 hour.
    </div>
</body>
</html>`
