package application

import (
	"context"

	"github.com/rs/zerolog"
)

// loggerFor prefers the request-scoped logger carrying the correlation id
func loggerFor(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &fallback
}
