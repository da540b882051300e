package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"forklift-assistant/internal/logging"
)

// Connect logs in to the Bot API, retrying up to attempts times with delay
// between tries. Running out of attempts is fatal for the caller.
func Connect(ctx context.Context, token string, attempts int, delay time.Duration, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	return connectWith(ctx, func() (*tgbotapi.BotAPI, error) {
		return tgbotapi.NewBotAPI(token)
	}, attempts, delay, logging.OrNop(logger).Named("telegram"))
}

func connectWith(ctx context.Context, dial func() (*tgbotapi.BotAPI, error), attempts int, delay time.Duration, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		api, err := dial()
		if err == nil {
			logger.Info("connected to telegram", zap.String("bot", api.Self.UserName), zap.Int("attempt", i))
			return api, nil
		}
		lastErr = err
		logger.Warn("telegram connection failed", zap.Int("attempt", i), zap.Int("of", attempts), zap.Error(err))
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("telegram unreachable after %d attempts: %w", attempts, lastErr)
}
