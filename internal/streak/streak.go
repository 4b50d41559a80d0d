// Package streak реализует машину состояний серии ежедневной активности.
package streak

import "time"

// State описывает текущее состояние серии пользователя. Нулевое значение
// соответствует состоянию «активности не было».
type State struct {
	Current   int
	Longest   int
	StartedAt *time.Time
	LastAt    *time.Time
}

// Advance выполняет переход машины состояний при успешном начислении.
// Границы суток считаются по целым календарным дням в UTC, поэтому серия
// не зависит от времени суток внутри одного дня.
//
// Переходы:
//   - активности не было: серия = 1, начало серии = now;
//   - тот же календарный день: без изменений;
//   - ровно на следующий день: серия + 1;
//   - пропуск более одного дня: серия сбрасывается в 1, начало серии = now.
func Advance(s State, now time.Time) State {
	next := s

	switch {
	case s.LastAt == nil || s.Current == 0:
		next.Current = 1
		next.StartedAt = &now
	default:
		switch daysBetween(*s.LastAt, now) {
		case 0:
			// Повторная активность в тот же день не меняет серию.
		case 1:
			next.Current = s.Current + 1
		default:
			next.Current = 1
			next.StartedAt = &now
		}
	}

	next.LastAt = &now
	if next.Current > next.Longest {
		next.Longest = next.Current
	}

	return next
}

// daysBetween возвращает число целых календарных дней в UTC между двумя
// моментами времени. Отрицательная разница (рассинхронизация часов)
// трактуется как тот же день.
func daysBetween(a, b time.Time) int {
	au := a.UTC()
	bu := b.UTC()

	aday := time.Date(au.Year(), au.Month(), au.Day(), 0, 0, 0, 0, time.UTC)
	bday := time.Date(bu.Year(), bu.Month(), bu.Day(), 0, 0, 0, 0, time.UTC)

	days := int(bday.Sub(aday) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}
