// Package service реализует бизнес-логику движка начисления баллов.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/gamification-system/internal/catalog"
	"github.com/mmeshcher/gamification-system/internal/idempotency"
	"github.com/mmeshcher/gamification-system/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
// Реализация обязана выполнять начисление в одной атомарной транзакции
// и обеспечивать уникальность ключа идемпотентности на уровне хранилища.
type Repository interface {
	Close() error
	AwardPoints(ctx context.Context, cmd model.AwardCommand) (*model.AwardResult, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	ListTransactions(ctx context.Context, userID int64, filter model.TransactionFilter) ([]model.PointsTransaction, error)
	SumPointsByUser(ctx context.Context, userID int64) (int64, error)
}

// AuditRecorder описывает порт записи аудита. Сбой записи логируется
// и проглатывается: аудит не входит в критический путь начисления.
type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// EventEmitter описывает порт публикации доменных событий для аналитики.
type EventEmitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// Service содержит бизнес-логику движка начисления баллов.
type Service struct {
	repo    Repository
	catalog *catalog.Catalog
	audit   AuditRecorder
	emitter EventEmitter
	logger  *zap.Logger
	now     func() time.Time
}

// NewService создаёт новый сервис с указанными коллабораторами.
func NewService(repo Repository, cat *catalog.Catalog, audit AuditRecorder, emitter EventEmitter, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		audit:   audit,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// AwardPoints начисляет баллы за действие ровно один раз для каждой
// уникальной тройки (пользователь, действие, метаданные). Повторный вызов
// с теми же аргументами возвращает Applied = false без побочных эффектов:
// для вызывающей стороны это штатный идемпотентный исход, а не ошибка.
func (s *Service) AwardPoints(ctx context.Context, req model.AwardRequest) (*model.AwardResult, error) {
	points, ok := s.catalog.Points(req.Action)
	if !ok {
		// Неизвестное действие отклоняется до каких-либо записей.
		return nil, catalog.ErrUnknownAction
	}

	now := s.now().UTC()

	res, err := s.repo.AwardPoints(ctx, model.AwardCommand{
		UserID:         req.UserID,
		IdempotencyKey: idempotency.Key(req.UserID, req.Action, req.Metadata),
		Action:         req.Action,
		Points:         points,
		Metadata:       req.Metadata,
		Source:         req.Source,
		CorrelationID:  req.CorrelationID,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	if !res.Applied {
		return res, nil
	}

	s.recordAudit(ctx, req, points, res, now)
	s.emitEvents(ctx, req, points, res)

	return res, nil
}

func (s *Service) recordAudit(ctx context.Context, req model.AwardRequest, points int64, res *model.AwardResult, now time.Time) {
	err := s.audit.Record(ctx, model.AuditEntry{
		Actor:         req.Actor,
		Action:        req.Action,
		UserID:        req.UserID,
		Points:        points,
		Balance:       res.Balance,
		Level:         res.Level,
		Source:        req.Source,
		CorrelationID: req.CorrelationID,
		OccurredAt:    now,
	})
	if err != nil {
		s.logger.Warn("audit write failed",
			zap.Error(err),
			zap.Int64("userID", req.UserID),
			zap.String("action", req.Action),
		)
	}
}

func (s *Service) emitEvents(ctx context.Context, req model.AwardRequest, points int64, res *model.AwardResult) {
	err := s.emitter.Emit(ctx, model.EventPointsEarned, model.PointsEarnedEvent{
		UserID:     req.UserID,
		Action:     req.Action,
		Points:     points,
		NewBalance: res.Balance,
	})
	if err != nil {
		s.logger.Warn("emit points_earned failed", zap.Error(err), zap.Int64("userID", req.UserID))
	}

	if !res.LeveledUp() {
		return
	}

	err = s.emitter.Emit(ctx, model.EventLevelUp, model.LevelUpEvent{
		UserID:   req.UserID,
		OldLevel: res.PreviousLevel,
		NewLevel: res.Level,
	})
	if err != nil {
		s.logger.Warn("emit level_up failed", zap.Error(err), zap.Int64("userID", req.UserID))
	}
}

// GetProgress возвращает текущий игровой прогресс пользователя.
func (s *Service) GetProgress(ctx context.Context, userID int64) (*model.Progress, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	levels := s.catalog.Levels()

	return &model.Progress{
		UserID:         u.ID,
		Balance:        u.PointsBalance,
		Level:          u.CurrentLevel,
		ProgressToNext: levels.ProgressToNext(u.PointsBalance),
		PointsToNext:   levels.PointsToNext(u.PointsBalance),
		Streak:         u.CurrentStreak,
		LongestStreak:  u.LongestStreak,
		LastActionAt:   u.LastActionAt,
	}, nil
}

// GetBadges возвращает статус бейджей пользователя. Бейджи вычисляются
// из текущих счётчиков и нигде не хранятся.
func (s *Service) GetBadges(ctx context.Context, userID int64) ([]model.BadgeStatus, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.catalog.EvaluateBadges(u.PointsBalance, u.CurrentLevel, u.LongestStreak), nil
}

// GetTransactions возвращает историю начислений пользователя.
func (s *Service) GetTransactions(ctx context.Context, userID int64, filter model.TransactionFilter) ([]model.PointsTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

// AuditBalance сверяет баланс пользователя с суммой записей реестра.
// Реестр является единственным источником истины для такой сверки.
func (s *Service) AuditBalance(ctx context.Context, userID int64) (ledgerTotal, balance int64, err error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	total, err := s.repo.SumPointsByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	return total, u.PointsBalance, nil
}
