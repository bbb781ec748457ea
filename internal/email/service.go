package email

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"gymportal/internal/logger"
	"gymportal/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxAttempts    = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Config struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

// Service queues outgoing mail in Redis and delivers it over SMTP from Start.
type Service struct {
	redis      *redis.Client
	cfg        Config
	retryDelay time.Duration
	send       func(job EmailJob) error
}

func New(rdb *redis.Client, cfg Config) *Service {
	s := &Service{
		redis:      rdb,
		cfg:        cfg,
		retryDelay: 5 * time.Second,
	}
	s.send = s.sendNow
	return s
}

func (s *Service) Send(ctx context.Context, to, name, emailType, subject, body string) error {
	job := EmailJob{
		To:      to,
		Name:    name,
		Type:    emailType,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		metrics.RecordEmail(emailType, "queue_failed")
		logger.Error("queue email", "to", to, "type", emailType, "error", err)
		return err
	}

	metrics.RecordEmail(emailType, "queued")
	logger.Debug("email queued", "to", to, "type", emailType)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return
	}

	job.Tries++
	if err := s.send(job); err != nil {
		logger.Warn("send email failed", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxAttempts {
			time.Sleep(s.retryDelay)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "to", job.To, "type", job.Type)
}

func (s *Service) sendNow(job EmailJob) error {
	message := s.buildMessage(job)

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" && s.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	return smtp.SendMail(addr, auth, s.cfg.From, []string{headerValue(job.To)}, message)
}

// buildMessage renders the RFC 5322 message. Header values are stripped of
// line breaks and non-ASCII text is Q-encoded.
func (s *Service) buildMessage(job EmailJob) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", headerValue(s.cfg.FromName)), headerValue(s.cfg.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(job.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(job.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n" + job.Body)
	return []byte(b.String())
}

func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Error("email moved to failed queue", "to", job.To, "type", job.Type)
}

// QueueLength reports the pending jobs and mirrors the value into the queue gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.SetEmailQueueLength(length)
	return length
}

// SendReceptionWelcome tells a new receptionist where to sign in.
func (s *Service) SendReceptionWelcome(ctx context.Context, to, name, gymName, loginURL string) error {
	subject := "Bienvenido al equipo de " + gymName
	body := fmt.Sprintf(`Hola %s,

Se ha creado tu cuenta de recepción en %s.

Inicia sesión con este correo en:
%s

- Equipo %s`, name, gymName, loginURL, s.cfg.FromName)

	return s.Send(ctx, to, name, "reception_welcome", subject, body)
}

func (s *Service) SendPlanAssigned(ctx context.Context, to, planType string, nextBilling time.Time) error {
	subject := "Tu plan ha sido activado"
	body := fmt.Sprintf(`Hola,

Tu suscripción %s está activa.
Próxima facturación: %s

- Equipo %s`, planType, nextBilling.Format("02/01/2006"), s.cfg.FromName)

	return s.Send(ctx, to, "", "plan_assigned", subject, body)
}

func (s *Service) SendPaymentFailed(ctx context.Context, to string) error {
	subject := "No hemos podido cobrar tu suscripción"
	body := fmt.Sprintf(`Hola,

El último cobro de tu suscripción ha fallado y el acceso ha quedado suspendido.
Actualiza tu método de pago para reactivarlo.

- Equipo %s`, s.cfg.FromName)

	return s.Send(ctx, to, "", "payment_failed", subject, body)
}
