package export

import (
	"fmt"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/models"

	"gorm.io/gorm"
)

type FilterType string

const (
	FilterAll       FilterType = "all"
	FilterCurrent   FilterType = "current"
	FilterDateRange FilterType = "date_range"
	FilterMonth     FilterType = "month"
)

// Filter — границы по work_date включительно; пустая граница — без ограничения.
type Filter struct {
	Type FilterType
	From string
	To   string
}

// ParseFilter разбирает filter_type/start_date/end_date.
// current — текущий календарный месяц, month — месяц из start_date (YYYY-MM или YYYY-MM-DD).
func ParseFilter(filterType, start, end string, now time.Time) (Filter, error) {
	switch FilterType(filterType) {
	case "", FilterAll:
		return Filter{Type: FilterAll}, nil

	case FilterCurrent:
		from, to := monthBounds(now)
		return Filter{Type: FilterCurrent, From: from, To: to}, nil

	case FilterMonth:
		m, err := parseMonth(start)
		if err != nil {
			return Filter{}, apperr.Invalid("Укажите месяц в формате ГГГГ-ММ")
		}
		from, to := monthBounds(m)
		return Filter{Type: FilterMonth, From: from, To: to}, nil

	case FilterDateRange:
		if start == "" && end == "" {
			return Filter{}, apperr.Invalid("Укажите хотя бы одну дату диапазона")
		}
		if start != "" {
			if _, err := time.Parse(models.DateLayout, start); err != nil {
				return Filter{}, apperr.Invalid("Дата начала должна быть в формате ГГГГ-ММ-ДД")
			}
		}
		if end != "" {
			if _, err := time.Parse(models.DateLayout, end); err != nil {
				return Filter{}, apperr.Invalid("Дата окончания должна быть в формате ГГГГ-ММ-ДД")
			}
		}
		if start != "" && end != "" && start > end {
			return Filter{}, apperr.Invalid("Дата начала позже даты окончания")
		}
		return Filter{Type: FilterDateRange, From: start, To: end}, nil
	}
	return Filter{}, apperr.Invalid("Неизвестный тип фильтра")
}

// Apply — даты хранятся как YYYY-MM-DD, поэтому строковое сравнение корректно.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	if f.From != "" {
		db = db.Where("work_date >= ?", f.From)
	}
	if f.To != "" {
		db = db.Where("work_date <= ?", f.To)
	}
	return db
}

func (f Filter) Suffix() string {
	switch {
	case f.Type == FilterCurrent || f.Type == FilterMonth:
		return f.From[:7]
	case f.From != "" || f.To != "":
		return fmt.Sprintf("%s_%s", orDash(f.From), orDash(f.To))
	}
	return "all"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func parseMonth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	return time.Parse(models.DateLayout, s)
}

func monthBounds(t time.Time) (string, string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(models.DateLayout), last.Format(models.DateLayout)
}
