// Package audit содержит регистратор аудита начислений.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/gamification-system/internal/model"
)

// ZapRecorder пишет записи аудита в структурированный лог. Запись делается
// по принципу "кто / что / когда / откуда / как" и предназначена для
// комплаенса, а не для восстановления состояния.
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder создаёт регистратор аудита поверх указанного логгера.
func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger.Named("audit")}
}

// Record фиксирует запись аудита. Ошибок записи у логгера нет, поэтому
// метод всегда возвращает nil; сигнатура оставлена с ошибкой, чтобы
// вызывающая сторона одинаково работала с любыми реализациями порта.
func (r *ZapRecorder) Record(ctx context.Context, entry model.AuditEntry) error {
	r.logger.Info("points awarded",
		zap.String("actor", entry.Actor),
		zap.String("action", entry.Action),
		zap.Int64("user_id", entry.UserID),
		zap.Int64("points", entry.Points),
		zap.Int64("balance", entry.Balance),
		zap.Int("level", entry.Level),
		zap.String("source", entry.Source),
		zap.String("correlation_id", entry.CorrelationID),
		zap.Time("occurred_at", entry.OccurredAt),
	)
	return nil
}
