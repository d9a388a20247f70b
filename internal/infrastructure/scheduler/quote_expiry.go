package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// QuoteExpiryTask is the name of the nightly quote expiry sweep
const QuoteExpiryTask = "quote-expiry"

// QuoteExpirer expires pending quotes past their expiration date
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// NewQuoteExpiryTask adapts a QuoteExpirer to a TaskFunc
func NewQuoteExpiryTask(expirer QuoteExpirer, logger *zap.Logger) TaskFunc {
	return func(ctx context.Context) error {
		n, err := expirer.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Quote expiry sweep finished", zap.Int("expired", n))
		return nil
	}
}
