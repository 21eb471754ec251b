package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tazhibayda/selectshop/internal/helper"
	"github.com/tazhibayda/selectshop/internal/queue"
	"go.uber.org/zap"
)

// Sender delivers mail. Delivery is a log line until an SMTP relay is configured.
type Sender struct {
	log *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{log: logger.Named("mail")}
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info("mail sent",
		zap.String("to_hash", helper.Hash8(to)),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}

// Notifier turns account events into mails.
type Notifier struct {
	sender *Sender
	log    *zap.Logger
}

func NewNotifier(sender *Sender, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, log: logger}
}

// Handle is a queue.Handler. Malformed payloads are dropped, not requeued.
func (n *Notifier) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case queue.KeyUserRegistered:
		var ev queue.UserRegistered
		if err := json.Unmarshal(body, &ev); err != nil {
			n.log.Warn("drop malformed event", zap.String("key", key), zap.Error(err))
			return nil
		}
		return n.sender.Send(ctx, ev.Email, "Welcome to selectshop",
			fmt.Sprintf("Hi %s, your account is ready.", ev.Username))
	case queue.KeyUserLinked:
		var ev queue.UserLinked
		if err := json.Unmarshal(body, &ev); err != nil {
			n.log.Warn("drop malformed event", zap.String("key", key), zap.Error(err))
			return nil
		}
		n.log.Info("kakao account linked", zap.String("user_id", ev.UserID), zap.Int64("kakao_id", ev.KakaoID))
		return nil
	default:
		n.log.Debug("ignore event", zap.String("key", key))
		return nil
	}
}
