// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/gamification-system/internal/catalog"
	"github.com/mmeshcher/gamification-system/internal/model"
	"github.com/mmeshcher/gamification-system/internal/streak"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserNotFound возвращается, если пользователь не найден в хранилище.
var ErrUserNotFound = errors.New("user not found")

// PostgresRepository предоставляет доступ к реестру начислений и счётчикам
// пользователей в PostgreSQL. Таблица начислений только пополняется:
// репозиторий не содержит операций изменения или удаления её строк.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	levels *catalog.LevelTable
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
// Таблица уровней нужна для пересчёта уровня внутри транзакции начисления.
func NewPostgresRepository(dsn string, levels *catalog.LevelTable) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, levels: levels}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlocks;
		// с переподключением pgxpool справляется сам.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// AwardPoints выполняет начисление в одной транзакции: вставка записи
// реестра, атомарный инкремент баланса, пересчёт уровня и переход серии.
// Единственным признаком дубликата служит нарушение уникальности ключа
// идемпотентности; предварительной проверки существования нет, поскольку
// такая проверка даёт гонку при конкурентных вызовах.
func (r *PostgresRepository) AwardPoints(ctx context.Context, cmd model.AwardCommand) (*model.AwardResult, error) {
	var res *model.AwardResult

	err := r.withRetry(ctx, func() error {
		var txErr error
		res, txErr = r.awardPointsTx(ctx, cmd)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (r *PostgresRepository) awardPointsTx(ctx context.Context, cmd model.AwardCommand) (*model.AwardResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	metadata, err := json.Marshal(cmd.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO points_transactions (user_id, idempotency_key, action, points, metadata, source, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cmd.UserID, cmd.IdempotencyKey, cmd.Action, cmd.Points, metadata, cmd.Source, cmd.CorrelationID, cmd.Now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				// Начисление с этим ключом уже применено. Транзакция
				// откатывается, никакое другое состояние не затронуто.
				return &model.AwardResult{Applied: false}, nil
			case pgerrcode.ForeignKeyViolation:
				return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, cmd.UserID)
			}
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	// Блокировка строки пользователя сериализует пересчёт серии и уровня
	// между конкурентными начислениями одному пользователю.
	var (
		prevLevel   int
		prevStreak  int
		prevLongest int
		startedAt   *time.Time
		lastAt      *time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT current_level, current_streak, longest_streak, streak_started_at, last_action_at
		 FROM users
		 WHERE id = $1
		 FOR UPDATE`,
		cmd.UserID,
	).Scan(&prevLevel, &prevStreak, &prevLongest, &startedAt, &lastAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, cmd.UserID)
		}
		return nil, fmt.Errorf("lock user for update: %w", err)
	}

	// Баланс изменяется только атомарным прибавлением к колонке,
	// без чтения и перезаписи значения.
	var newBalance int64
	err = tx.QueryRow(ctx,
		`UPDATE users
		 SET points_balance = points_balance + $2, last_action_at = $3
		 WHERE id = $1
		 RETURNING points_balance`,
		cmd.UserID, cmd.Points, cmd.Now,
	).Scan(&newBalance)
	if err != nil {
		return nil, fmt.Errorf("increment balance: %w", err)
	}

	newLevel := r.levels.LevelFor(newBalance)
	if newLevel < prevLevel {
		newLevel = prevLevel
	}

	next := streak.Advance(streak.State{
		Current:   prevStreak,
		Longest:   prevLongest,
		StartedAt: startedAt,
		LastAt:    lastAt,
	}, cmd.Now)

	// GREATEST страхует монотонность уровня и на стороне хранилища.
	_, err = tx.Exec(ctx,
		`UPDATE users
		 SET current_level = GREATEST(current_level, $2),
		     current_streak = $3,
		     longest_streak = $4,
		     streak_started_at = $5
		 WHERE id = $1`,
		cmd.UserID, newLevel, next.Current, next.Longest, next.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update level and streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &model.AwardResult{
		Applied:       true,
		Balance:       newBalance,
		PreviousLevel: prevLevel,
		Level:         newLevel,
		Streak:        next.Current,
		LongestStreak: next.Longest,
	}, nil
}

// GetUser возвращает игровые счётчики пользователя.
func (r *PostgresRepository) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, points_balance, current_level, current_streak, longest_streak, streak_started_at, last_action_at, created_at
		 FROM users
		 WHERE id = $1`,
		userID,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.PointsBalance, &u.CurrentLevel, &u.CurrentStreak, &u.LongestStreak, &u.StreakStartedAt, &u.LastActionAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ListTransactions возвращает историю начислений пользователя с фильтрами
// по интервалу времени и идентификатору корреляции.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID int64, filter model.TransactionFilter) ([]model.PointsTransaction, error) {
	query := `SELECT id, user_id, idempotency_key, action, points, metadata, source, correlation_id, created_at
	 FROM points_transactions
	 WHERE user_id = $1`
	args := []any{userID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if filter.CorrelationID != "" {
		args = append(args, filter.CorrelationID)
		query += fmt.Sprintf(" AND correlation_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.PointsTransaction
	for rows.Next() {
		var (
			t        model.PointsTransaction
			metadata []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.IdempotencyKey, &t.Action, &t.Points, &metadata, &t.Source, &t.CorrelationID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SumPointsByUser возвращает сумму баллов по записям реестра пользователя.
// Используется для сверки баланса при аудитах и бэкфиллах.
func (r *PostgresRepository) SumPointsByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)
		 FROM points_transactions
		 WHERE user_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}

	return total, nil
}
