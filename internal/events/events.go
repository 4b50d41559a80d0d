// Package events содержит реализации порта публикации доменных событий.
// Все реализации работают по принципу fire-and-forget: сбой публикации
// никогда не влияет на бизнес-операцию.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/gamification-system/internal/analytics"
)

// LogEmitter публикует события в структурированный лог. Используется,
// когда внешний аналитический конвейер не настроен.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter создаёт эмиттер поверх указанного логгера.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger.Named("events")}
}

// Emit пишет событие в лог.
func (e *LogEmitter) Emit(ctx context.Context, event string, payload any) error {
	e.logger.Info("domain event",
		zap.String("event", event),
		zap.Any("payload", payload),
	)
	return nil
}

// RedisEmitter публикует события в канал Redis для аналитического конвейера.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// NewRedisEmitter создаёт эмиттер, публикующий события в указанный канал.
func NewRedisEmitter(addr, channel string) *RedisEmitter {
	return &RedisEmitter{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// Emit сериализует событие в JSON и публикует его командой PUBLISH.
func (e *RedisEmitter) Emit(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(analytics.Envelope{
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := e.client.Publish(ctx, e.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}

// HTTPEmitter отправляет события во внешний коллектор аналитики через
// ограниченную очередь и фоновый цикл доставки. При переполнении очереди
// событие отбрасывается с записью в лог: доставка не блокирует начисление.
type HTTPEmitter struct {
	client *analytics.Client
	queue  chan analytics.Envelope
	logger *zap.Logger
}

// NewHTTPEmitter создаёт эмиттер с очередью указанной ёмкости.
func NewHTTPEmitter(client *analytics.Client, queueSize int, logger *zap.Logger) *HTTPEmitter {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &HTTPEmitter{
		client: client,
		queue:  make(chan analytics.Envelope, queueSize),
		logger: logger.Named("events"),
	}
}

// Emit ставит событие в очередь доставки без ожидания.
func (e *HTTPEmitter) Emit(ctx context.Context, event string, payload any) error {
	env := analytics.Envelope{
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}

	select {
	case e.queue <- env:
		return nil
	default:
		e.logger.Warn("event queue full, dropping event", zap.String("event", event))
		return nil
	}
}

// Start запускает фоновый цикл доставки событий. Цикл завершается
// при отмене контекста.
func (e *HTTPEmitter) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-e.queue:
				e.deliver(ctx, env)
			}
		}
	}()
}

func (e *HTTPEmitter) deliver(ctx context.Context, env analytics.Envelope) {
	statusCode, retryAfter, err := e.client.SendEvent(ctx, env)
	if err != nil {
		e.logger.Warn("event delivery failed",
			zap.String("event", env.Event),
			zap.Error(err),
		)
		return
	}

	if statusCode == 429 && retryAfter > 0 {
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}
