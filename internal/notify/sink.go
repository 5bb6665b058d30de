package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// Sink delivers a fired trigger to the patient
type Sink interface {
	Name() string
	Deliver(ctx context.Context, trigger model.ReminderTrigger) error
}

// LogSink writes fired triggers to the log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, trigger model.ReminderTrigger) error {
	s.logger.Info("Reminder fired",
		zap.Int("trigger_id", trigger.ID),
		zap.String("category", string(trigger.Category)),
		zap.String("title", trigger.Title),
		zap.String("body", trigger.Body),
	)
	return nil
}

// MultiSink delivers to every sink and joins their errors
type MultiSink []Sink

func (m MultiSink) Name() string {
	names := make([]string, 0, len(m))
	for _, s := range m {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (m MultiSink) Deliver(ctx context.Context, trigger model.ReminderTrigger) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, trigger); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink sends fired triggers as Telegram messages. Sends go through
// a circuit breaker that opens after three consecutive failures.
type TelegramSink struct {
	sender  messageSender
	chatID  int64
	breaker *gobreaker.CircuitBreaker[tgbotapi.Message]
	logger  *zap.Logger
}

// NewTelegramSink connects to the Bot API with token
func NewTelegramSink(token string, chatID int64, logger *zap.Logger) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram sink authorized", zap.String("bot", bot.Self.UserName))

	return newTelegramSink(bot, chatID, logger), nil
}

func newTelegramSink(sender messageSender, chatID int64, logger *zap.Logger) *TelegramSink {
	settings := gobreaker.Settings{
		Name:    "telegram",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &TelegramSink{
		sender:  sender,
		chatID:  chatID,
		breaker: gobreaker.NewCircuitBreaker[tgbotapi.Message](settings),
		logger:  logger,
	}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(_ context.Context, trigger model.ReminderTrigger) error {
	msg := tgbotapi.NewMessage(s.chatID, fmt.Sprintf("%s\n\n%s", trigger.Title, trigger.Body))

	sent, err := s.breaker.Execute(func() (tgbotapi.Message, error) {
		return s.sender.Send(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram reminder: %w", err)
	}

	s.logger.Debug("Telegram reminder sent",
		zap.Int("trigger_id", trigger.ID),
		zap.Int("message_id", sent.MessageID),
	)
	return nil
}
