// Package model содержит доменные сущности движка начисления баллов.
package model

import "time"

// User содержит игровые счётчики пользователя платформы онбординга.
// Жизненным циклом пользователя владеет внешняя подсистема; движок
// изменяет только эти поля и только атомарными командами хранилища.
type User struct {
	ID              int64
	PointsBalance   int64
	CurrentLevel    int
	CurrentStreak   int
	LongestStreak   int
	StreakStartedAt *time.Time
	LastActionAt    *time.Time
	CreatedAt       time.Time
}

// PointsTransaction описывает факт начисления баллов. Записи неизменяемы:
// после создания они никогда не обновляются и не удаляются.
type PointsTransaction struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"user_id"`
	IdempotencyKey string            `json:"idempotency_key"`
	Action         string            `json:"action"`
	Points         int64             `json:"points"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Source         string            `json:"source,omitempty"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AwardRequest описывает запрос на начисление баллов, сформированный вызывающей стороной.
type AwardRequest struct {
	UserID        int64
	Action        string
	Metadata      map[string]string
	Source        string
	Actor         string
	CorrelationID string
}

// AwardCommand — команда на выполнение начисления внутри одной транзакции хранилища.
type AwardCommand struct {
	UserID         int64
	IdempotencyKey string
	Action         string
	Points         int64
	Metadata       map[string]string
	Source         string
	CorrelationID  string
	Now            time.Time
}

// AwardResult содержит итог начисления. Applied = false означает,
// что начисление с таким же ключом идемпотентности уже применялось ранее.
type AwardResult struct {
	Applied       bool
	Balance       int64
	PreviousLevel int
	Level         int
	Streak        int
	LongestStreak int
}

// LeveledUp сообщает, поднялся ли уровень пользователя в результате начисления.
func (r *AwardResult) LeveledUp() bool {
	return r.Applied && r.Level > r.PreviousLevel
}

// Progress описывает текущий игровой прогресс пользователя.
type Progress struct {
	UserID         int64      `json:"user_id"`
	Balance        int64      `json:"balance"`
	Level          int        `json:"level"`
	ProgressToNext float64    `json:"progress_to_next"`
	PointsToNext   int64      `json:"points_to_next"`
	Streak         int        `json:"streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastActionAt   *time.Time `json:"last_action_at,omitempty"`
}

// BadgeStatus описывает бейдж и признак его получения пользователем.
type BadgeStatus struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Earned bool   `json:"earned"`
}

// TransactionFilter задаёт условия выборки истории начислений.
type TransactionFilter struct {
	From          *time.Time
	To            *time.Time
	CorrelationID string
}

// Имена доменных событий, публикуемых для аналитического конвейера.
const (
	EventPointsEarned = "points_earned"
	EventLevelUp      = "level_up"
)

// PointsEarnedEvent публикуется после каждого применённого начисления.
type PointsEarnedEvent struct {
	UserID     int64  `json:"user_id"`
	Action     string `json:"action"`
	Points     int64  `json:"points"`
	NewBalance int64  `json:"new_balance"`
}

// LevelUpEvent публикуется, когда начисление подняло уровень пользователя.
type LevelUpEvent struct {
	UserID   int64 `json:"user_id"`
	OldLevel int   `json:"old_level"`
	NewLevel int   `json:"new_level"`
}

// AuditEntry описывает запись аудита: кто, что, когда, откуда и как.
type AuditEntry struct {
	Actor         string
	Action        string
	UserID        int64
	Points        int64
	Balance       int64
	Level         int
	Source        string
	CorrelationID string
	OccurredAt    time.Time
}
