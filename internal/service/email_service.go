package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/models"
)

const defaultSMTPDialTimeout = 15 * time.Second

// EmailService 邮件发送服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SetConfig 更新运行时邮件配置
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
}

// SalaryNotificationInput 薪资结算通知内容
type SalaryNotificationInput struct {
	ProviderName string
	BatchNo      string
	Currency     string
	TotalEarning models.Money
	Commission   models.Money
	EPF          models.Money
	ETF          models.Money
	NetSalary    models.Money
}

// SendSalaryNotification 发送薪资结算通知
func (s *EmailService) SendSalaryNotification(ctx context.Context, toEmail string, input SalaryNotificationInput) error {
	subject, body := buildSalaryNotificationContent(input)
	return s.sendTextEmail(ctx, toEmail, subject, body)
}

// SendCustomEmail 发送测试邮件或自定义邮件
func (s *EmailService) SendCustomEmail(ctx context.Context, toEmail, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "SMTP test message"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "This is an SMTP test message from CareNest. The current mail settings can deliver email."
	}
	return s.sendTextEmail(ctx, toEmail, subject, body)
}

func (s *EmailService) sendTextEmail(ctx context.Context, toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}
	if ctx == nil {
		ctx = context.Background()
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	conn, err := dialSMTP(ctx, addr, s.cfg.Host, s.cfg.UseSSL)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if !s.cfg.UseSSL && s.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}
	return normalizeEmailSendError(sendSMTPData(client, s.cfg.From, []string{toEmail}, []byte(msg)))
}

// dialSMTP 建立 SMTP 连接，连接截止时间跟随 ctx
func dialSMTP(ctx context.Context, addr, host string, useSSL bool) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: defaultSMTPDialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if useSSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func buildSalaryNotificationContent(input SalaryNotificationInput) (string, string) {
	name := strings.TrimSpace(input.ProviderName)
	if name == "" {
		name = "Service Provider"
	}
	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = "LKR"
	}
	subject := fmt.Sprintf("Salary settled: %s %s", currency, input.NetSalary.String())

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("Dear %s,\n\n", name))
	buf.WriteString(fmt.Sprintf("Your salary has been settled. Net salary for this settlement: %s %s.\n\n", currency, input.NetSalary.String()))
	buf.WriteString(fmt.Sprintf("Total earning: %s %s\n", currency, input.TotalEarning.String()))
	buf.WriteString(fmt.Sprintf("Platform commission: %s %s\n", currency, input.Commission.String()))
	buf.WriteString(fmt.Sprintf("EPF: %s %s\n", currency, input.EPF.String()))
	buf.WriteString(fmt.Sprintf("ETF: %s %s\n", currency, input.ETF.String()))
	if batchNo := strings.TrimSpace(input.BatchNo); batchNo != "" {
		buf.WriteString(fmt.Sprintf("\nSettlement reference: %s\n", batchNo))
	}
	return subject, buf.String()
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	directKeywords := []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range directKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		hints := []string{"recipient", "user", "mailbox", "address", "rcpt"}
		for _, hint := range hints {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}
