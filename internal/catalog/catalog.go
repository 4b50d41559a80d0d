// Package catalog содержит неизменяемую конфигурацию геймификации:
// каталог действий, таблицу порогов уровней и таблицу бейджей.
// Конфигурация загружается один раз при старте процесса и далее не меняется.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/gamification-system/internal/model"
)

// ErrUnknownAction возвращается при попытке начислить баллы за действие,
// отсутствующее в каталоге. Ошибка не подлежит повтору.
var ErrUnknownAction = errors.New("unknown action")

// BadgeRequirement описывает вид условия получения бейджа.
type BadgeRequirement string

const (
	BadgeRequirementBalance BadgeRequirement = "balance"
	BadgeRequirementLevel   BadgeRequirement = "level"
	BadgeRequirementStreak  BadgeRequirement = "streak"
)

// Badge описывает бейдж и условие его получения.
type Badge struct {
	Code        string           `yaml:"code"`
	Name        string           `yaml:"name"`
	Requirement BadgeRequirement `yaml:"requirement"`
	Threshold   int64            `yaml:"threshold"`
}

// LevelThreshold связывает номер уровня с минимальной суммой баллов для его достижения.
type LevelThreshold struct {
	Level  int   `yaml:"level"`
	Points int64 `yaml:"points"`
}

// LevelTable — упорядоченная таблица порогов уровней. Пороги строго
// возрастают, первый уровень всегда (1, 0).
type LevelTable struct {
	thresholds []LevelThreshold
}

// NewLevelTable строит таблицу порогов и проверяет её корректность.
func NewLevelTable(thresholds []LevelThreshold) (*LevelTable, error) {
	if len(thresholds) == 0 {
		return nil, errors.New("level table is empty")
	}

	sorted := make([]LevelThreshold, len(thresholds))
	copy(sorted, thresholds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	if sorted[0].Level != 1 || sorted[0].Points != 0 {
		return nil, errors.New("level table must start with level 1 at 0 points")
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Level != sorted[i-1].Level+1 {
			return nil, fmt.Errorf("level numbers must be consecutive, got %d after %d", sorted[i].Level, sorted[i-1].Level)
		}
		if sorted[i].Points <= sorted[i-1].Points {
			return nil, fmt.Errorf("level %d threshold %d is not greater than previous", sorted[i].Level, sorted[i].Points)
		}
	}

	return &LevelTable{thresholds: sorted}, nil
}

// LevelFor возвращает максимальный уровень, порог которого достигнут
// указанной суммой баллов. Функция чистая: уровень всегда можно
// пересчитать по историческим суммам без расхождений.
func (t *LevelTable) LevelFor(points int64) int {
	level := 1
	for _, th := range t.thresholds {
		if points >= th.Points {
			level = th.Level
		} else {
			break
		}
	}
	return level
}

// ProgressToNext возвращает нормированную долю продвижения к следующему
// уровню в диапазоне [0, 1]. На максимальном уровне возвращается 1.
func (t *LevelTable) ProgressToNext(points int64) float64 {
	level := t.LevelFor(points)
	if level >= t.MaxLevel() {
		return 1.0
	}

	current := t.thresholds[level-1].Points
	next := t.thresholds[level].Points

	progress := float64(points-current) / float64(next-current)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// PointsToNext возвращает количество баллов до следующего уровня.
// На максимальном уровне возвращается 0.
func (t *LevelTable) PointsToNext(points int64) int64 {
	level := t.LevelFor(points)
	if level >= t.MaxLevel() {
		return 0
	}
	return t.thresholds[level].Points - points
}

// MaxLevel возвращает максимальный уровень, определённый в таблице.
func (t *LevelTable) MaxLevel() int {
	return t.thresholds[len(t.thresholds)-1].Level
}

// Catalog объединяет каталог действий, таблицу уровней и таблицу бейджей.
type Catalog struct {
	actions map[string]int64
	levels  *LevelTable
	badges  []Badge
}

// New строит каталог из переданных таблиц и проверяет их корректность.
func New(actions map[string]int64, thresholds []LevelThreshold, badges []Badge) (*Catalog, error) {
	if len(actions) == 0 {
		return nil, errors.New("action catalog is empty")
	}
	for code, points := range actions {
		if code == "" {
			return nil, errors.New("action code must not be empty")
		}
		if points <= 0 {
			return nil, fmt.Errorf("action %q has non-positive points %d", code, points)
		}
	}

	levels, err := NewLevelTable(thresholds)
	if err != nil {
		return nil, err
	}

	for _, b := range badges {
		switch b.Requirement {
		case BadgeRequirementBalance, BadgeRequirementLevel, BadgeRequirementStreak:
		default:
			return nil, fmt.Errorf("badge %q has unknown requirement %q", b.Code, b.Requirement)
		}
		if b.Code == "" {
			return nil, errors.New("badge code must not be empty")
		}
		if b.Threshold <= 0 {
			return nil, fmt.Errorf("badge %q has non-positive threshold %d", b.Code, b.Threshold)
		}
	}

	owned := make(map[string]int64, len(actions))
	for k, v := range actions {
		owned[k] = v
	}

	return &Catalog{
		actions: owned,
		levels:  levels,
		badges:  append([]Badge(nil), badges...),
	}, nil
}

// Points возвращает количество баллов за действие и признак того,
// что действие присутствует в каталоге.
func (c *Catalog) Points(action string) (int64, bool) {
	points, ok := c.actions[action]
	return points, ok
}

// Levels возвращает таблицу порогов уровней.
func (c *Catalog) Levels() *LevelTable {
	return c.levels
}

// EvaluateBadges возвращает статус каждого бейджа для указанных счётчиков.
// Вычисление чистое и не обращается к хранилищу.
func (c *Catalog) EvaluateBadges(balance int64, level, longestStreak int) []model.BadgeStatus {
	res := make([]model.BadgeStatus, 0, len(c.badges))
	for _, b := range c.badges {
		earned := false
		switch b.Requirement {
		case BadgeRequirementBalance:
			earned = balance >= b.Threshold
		case BadgeRequirementLevel:
			earned = int64(level) >= b.Threshold
		case BadgeRequirementStreak:
			earned = int64(longestStreak) >= b.Threshold
		}
		res = append(res, model.BadgeStatus{Code: b.Code, Name: b.Name, Earned: earned})
	}
	return res
}

type fileFormat struct {
	Actions map[string]int64 `yaml:"actions"`
	Levels  []LevelThreshold `yaml:"levels"`
	Badges  []Badge          `yaml:"badges"`
}

// Load читает каталог из YAML-файла. При пустом пути возвращается
// встроенная конфигурация по умолчанию.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	c, err := New(f.Actions, f.Levels, f.Badges)
	if err != nil {
		return nil, fmt.Errorf("validate catalog file: %w", err)
	}

	return c, nil
}

// Default возвращает встроенную конфигурацию действий онбординга.
func Default() (*Catalog, error) {
	return New(
		map[string]int64{
			"registration":            100,
			"profile_completed":       50,
			"document_upload":         75,
			"document_approved":       150,
			"questionnaire_completed": 125,
			"appointment_booked":      80,
		},
		[]LevelThreshold{
			{Level: 1, Points: 0},
			{Level: 2, Points: 500},
			{Level: 3, Points: 1200},
			{Level: 4, Points: 2500},
			{Level: 5, Points: 5000},
		},
		[]Badge{
			{Code: "first_steps", Name: "First Steps", Requirement: BadgeRequirementBalance, Threshold: 100},
			{Code: "paper_trail", Name: "Paper Trail", Requirement: BadgeRequirementBalance, Threshold: 1000},
			{Code: "level_three", Name: "Rising Star", Requirement: BadgeRequirementLevel, Threshold: 3},
			{Code: "week_streak", Name: "Weekly Habit", Requirement: BadgeRequirementStreak, Threshold: 7},
		},
	)
}
