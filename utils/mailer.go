package utils

import (
	"crypto/tls"
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/linklet/linklet/config"
)

// Mailer delivers outbound mail. Handlers only ever enqueue; delivery
// happens off the request path so a slow SMTP provider cannot stall a
// signup or login response.
type Mailer interface {
	Enqueue(to, subject, body string)
}

// AsyncMailer buffers messages on a channel consumed by a single worker
// goroutine that retries transient SMTP failures with backoff.
type AsyncMailer struct {
	cfg    config.AppConfig
	dialer *gomail.Dialer
	queue  chan *gomail.Message
	done   chan struct{}
}

const (
	mailQueueSize   = 256
	mailMaxAttempts = 3
)

// NewAsyncMailer builds the mailer and starts its delivery worker.
func NewAsyncMailer(cfg config.AppConfig) *AsyncMailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if cfg.SMTPTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	}
	m := &AsyncMailer{
		cfg:    cfg,
		dialer: d,
		queue:  make(chan *gomail.Message, mailQueueSize),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

// Enqueue queues a plain-text email. When the queue is full the message is
// dropped with a log line rather than blocking the request.
func (m *AsyncMailer) Enqueue(to, subject, body string) {
	if m.cfg.SMTPHost == "" || m.cfg.SMTPFrom == "" {
		if Sugar != nil {
			Sugar.Warnf("smtp not configured, dropping mail to %s", to)
		}
		return
	}

	msg := gomail.NewMessage()
	fromName := m.cfg.SMTPFromName
	if fromName == "" {
		fromName = "Linklet"
	}
	msg.SetAddressHeader("From", m.cfg.SMTPFrom, fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	select {
	case m.queue <- msg:
	default:
		if Sugar != nil {
			Sugar.Errorf("mail queue full, dropping mail to %s", to)
		}
	}
}

// Close stops the worker after draining queued messages.
func (m *AsyncMailer) Close() {
	close(m.queue)
	<-m.done
}

func (m *AsyncMailer) run() {
	defer close(m.done)
	for msg := range m.queue {
		m.deliver(msg)
	}
}

func (m *AsyncMailer) deliver(msg *gomail.Message) {
	var err error
	for attempt := 1; attempt <= mailMaxAttempts; attempt++ {
		if err = m.dialer.DialAndSend(msg); err == nil {
			return
		}
		if Sugar != nil {
			Sugar.Warnf("mail delivery attempt %d failed: %v", attempt, err)
		}
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	if Sugar != nil {
		Sugar.Errorf("giving up on mail to %v: %v", msg.GetHeader("To"), err)
	}
}

// VerificationMailBody renders the body for a signup or login code email.
func VerificationMailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is: %s\nIt expires in %d minutes.", code, int(ttl.Minutes()))
}
