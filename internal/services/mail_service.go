package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"creddit/internal/apperror"
	"creddit/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var resetTemplate = template.Must(template.New("reset").Parse(
	`<p>Someone asked to reset the password for your creddit account.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link expires in 24 hours. If this wasn't you, ignore this mail.</p>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type MailService struct {
	cfg     config.SMTP
	log     *logrus.Logger
	metrics *Metrics
	cb      *gobreaker.CircuitBreaker
	send    sendFunc
	wg      sync.WaitGroup
}

func NewMailService(cfg config.SMTP, log *logrus.Logger, metrics *Metrics) *MailService {
	if !cfg.Enabled() {
		log.Warn("MailService disabled: Missing SMTP environment variables.")
	}

	st := gobreaker.Settings{
		Name:        "SMTPCircuitBreaker",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("CircuitBreaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &MailService{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		cb:      gobreaker.NewCircuitBreaker(st),
		send:    smtp.SendMail,
	}
}

// SendPasswordResetEmail mails the reset link. Delivery happens in the
// background; failures are logged and never reported to the caller.
func (s *MailService) SendPasswordResetEmail(email, link string) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, map[string]string{"Link": link}); err != nil {
		s.log.WithError(err).Error("Error rendering reset email")
		return
	}
	if !s.cfg.Enabled() {
		s.log.WithField("to", email).Infof("Password reset link (mail disabled): %s", link)
		return
	}
	s.sendAsync([]string{email}, "Reset your creddit password", buf.String())
}

// Wait blocks until every queued mail has been attempted.
func (s *MailService) Wait() {
	s.wg.Wait()
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: creddit <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))

		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.send(addr, auth, s.cfg.From, to, msg)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				err = apperror.Unavailable("mail", err)
			}
			s.metrics.MailFailures.Inc()
			s.log.WithError(err).WithField("to", to).Error("Failed to send email")
			return
		}
		s.log.WithField("to", to).Infof("Email sent: %s", subject)
	}()
}
