package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"

	gomail "gopkg.in/gomail.v2"
)

// smtpsPort is the implicit-TLS SMTP port. Any other port negotiates
// STARTTLS after the plaintext handshake.
const smtpsPort = 465

// emailNotifier delivers rendered messages over SMTP, all recipients in one
// session.
type emailNotifier struct {
	cfg     model.EmailTriggerConfig
	timeout time.Duration
}

var _ Notifier = (*emailNotifier)(nil)

func newEmailNotifier(cfg model.EmailTriggerConfig, timeout time.Duration) *emailNotifier {
	if cfg.Port == 0 {
		cfg.Port = smtpsPort
	}
	return &emailNotifier{
		cfg:     cfg,
		timeout: timeout,
	}
}

// classifySMTPError sorts SMTP failures into the retry taxonomy: permanent
// protocol rejections (5xx reply codes, e.g. a refused recipient) are
// terminal; connection, TLS, and authentication problems are retryable.
func classifySMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return fmt.Errorf("%w: %w", ErrTerminal, err)
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

func (n *emailNotifier) Send(ctx context.Context, payload Payload) error {
	message := gomail.NewMessage()
	message.SetHeader("From", n.cfg.Sender)
	message.SetHeader("To", n.cfg.Recipients...)
	message.SetHeader("Subject", payload.Title)
	message.SetBody("text/plain", payload.Body)

	dialer := gomail.NewDialer(n.cfg.Host, int(n.cfg.Port), n.cfg.Username, n.cfg.Password)
	dialer.SSL = n.cfg.Port == smtpsPort

	// gomail has no context support; run the session in a goroutine and
	// honor cancellation and the session deadline here.
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(message)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrRetryable, ctx.Err())
	case err := <-done:
		if err != nil {
			return classifySMTPError(err)
		}
		return nil
	}
}
