package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/pkg/types"
)

var (
	// ErrInvalidWindow возвращается при некорректном рабочем окне
	ErrInvalidWindow = errors.New("invalid working window")

	// ErrInvalidBlockedSlot возвращается при некорректном заблокированном диапазоне
	ErrInvalidBlockedSlot = errors.New("invalid blocked slot")

	// ErrInvalidDurationLimits возвращается при некорректных границах длительности
	ErrInvalidDurationLimits = errors.New("invalid duration limits")
)

// Источник календаря в ответе
const (
	SourceResource = "resource" // собственный календарь ресурса
	SourceClinic   = "clinic"   // клинический календарь по умолчанию
	SourceBuiltIn  = "built_in" // встроенный дефолт, в БД ничего нет
)

// DayWindowModel рабочее окно одного дня недели
type DayWindowModel struct {
	IsOpen    bool   `json:"isOpen"`
	OpenTime  string `json:"openTime,omitempty"`  // "09:00"
	CloseTime string `json:"closeTime,omitempty"` // "18:00"
}

// WeekScheduleModel рабочие окна по дням недели
type WeekScheduleModel struct {
	Monday    DayWindowModel `json:"monday"`
	Tuesday   DayWindowModel `json:"tuesday"`
	Wednesday DayWindowModel `json:"wednesday"`
	Thursday  DayWindowModel `json:"thursday"`
	Friday    DayWindowModel `json:"friday"`
	Saturday  DayWindowModel `json:"saturday"`
	Sunday    DayWindowModel `json:"sunday"`
}

// BlockedSlotModel заблокированный диапазон
type BlockedSlotModel struct {
	StartTime string `json:"startTime"` // RFC 3339
	EndTime   string `json:"endTime"`   // RFC 3339
	Reason    string `json:"reason,omitempty"`
}

// UpdateCalendarRequest запрос на перезапись календаря
type UpdateCalendarRequest struct {
	WorkingHours       WeekScheduleModel  `json:"workingHours"`
	Blocked            []BlockedSlotModel `json:"blocked,omitempty"`
	MinDurationMinutes int                `json:"minDurationMinutes"`
	MaxDurationMinutes int                `json:"maxDurationMinutes"`
}

// CalendarResponse ответ с календарем
type CalendarResponse struct {
	ResourceID         *string            `json:"resourceId,omitempty"` // nil - клинический календарь
	Source             string             `json:"source"`
	WorkingHours       WeekScheduleModel  `json:"workingHours"`
	Blocked            []BlockedSlotModel `json:"blocked"`
	MinDurationMinutes int                `json:"minDurationMinutes"`
	MaxDurationMinutes int                `json:"maxDurationMinutes"`
}

// Методы конвертации

// ToDomainCalendar валидирует запрос и конвертирует его в domain модель
func (r *UpdateCalendarRequest) ToDomainCalendar() (*domain.BusinessCalendar, error) {
	if r.MinDurationMinutes < domain.MinDurationLimitMinutes || r.MaxDurationMinutes > domain.MaxDurationLimitMinutes {
		return nil, fmt.Errorf("%w: allowed range is [%d, %d] minutes",
			ErrInvalidDurationLimits, domain.MinDurationLimitMinutes, domain.MaxDurationLimitMinutes)
	}
	if r.MinDurationMinutes > r.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: min %d exceeds max %d",
			ErrInvalidDurationLimits, r.MinDurationMinutes, r.MaxDurationMinutes)
	}

	schedule := domain.WeekSchedule{}
	for _, day := range []struct {
		name   string
		model  DayWindowModel
		target *domain.DayWindow
	}{
		{"monday", r.WorkingHours.Monday, &schedule.Monday},
		{"tuesday", r.WorkingHours.Tuesday, &schedule.Tuesday},
		{"wednesday", r.WorkingHours.Wednesday, &schedule.Wednesday},
		{"thursday", r.WorkingHours.Thursday, &schedule.Thursday},
		{"friday", r.WorkingHours.Friday, &schedule.Friday},
		{"saturday", r.WorkingHours.Saturday, &schedule.Saturday},
		{"sunday", r.WorkingHours.Sunday, &schedule.Sunday},
	} {
		window, err := day.model.toDomainWindow()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWindow, day.name, err)
		}
		*day.target = window
	}

	blocked := make([]domain.BlockedSlot, 0, len(r.Blocked))
	for _, slot := range r.Blocked {
		start, err := time.Parse(time.RFC3339, slot.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: startTime %q", ErrInvalidBlockedSlot, slot.StartTime)
		}
		end, err := time.Parse(time.RFC3339, slot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: endTime %q", ErrInvalidBlockedSlot, slot.EndTime)
		}
		interval, err := domain.NewInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBlockedSlot, err)
		}
		blocked = append(blocked, domain.BlockedSlot{Interval: interval, Reason: slot.Reason})
	}

	return &domain.BusinessCalendar{
		WorkingHours:       schedule,
		Blocked:            blocked,
		MinDurationMinutes: r.MinDurationMinutes,
		MaxDurationMinutes: r.MaxDurationMinutes,
	}, nil
}

func (m DayWindowModel) toDomainWindow() (domain.DayWindow, error) {
	if !m.IsOpen {
		return domain.DayWindow{IsOpen: false}, nil
	}

	openTime, err := types.NewTimeStringFromString(m.OpenTime)
	if err != nil {
		return domain.DayWindow{}, fmt.Errorf("openTime %q: %v", m.OpenTime, err)
	}
	closeTime, err := types.NewTimeStringFromString(m.CloseTime)
	if err != nil {
		return domain.DayWindow{}, fmt.Errorf("closeTime %q: %v", m.CloseTime, err)
	}
	if !openTime.IsBefore(closeTime) {
		return domain.DayWindow{}, fmt.Errorf("open %s is not before close %s", m.OpenTime, m.CloseTime)
	}

	return domain.DayWindow{IsOpen: true, OpenTime: openTime, CloseTime: closeTime}, nil
}

// FromDomainCalendar конвертирует domain модель в DTO
func FromDomainCalendar(resourceID *string, source string, cal *domain.BusinessCalendar) *CalendarResponse {
	if cal == nil {
		return nil
	}

	blocked := make([]BlockedSlotModel, 0, len(cal.Blocked))
	for _, slot := range cal.Blocked {
		blocked = append(blocked, BlockedSlotModel{
			StartTime: slot.Interval.Start.Format(time.RFC3339),
			EndTime:   slot.Interval.End.Format(time.RFC3339),
			Reason:    slot.Reason,
		})
	}

	return &CalendarResponse{
		ResourceID:         resourceID,
		Source:             source,
		WorkingHours:       fromDomainSchedule(cal.WorkingHours),
		Blocked:            blocked,
		MinDurationMinutes: cal.MinDurationMinutes,
		MaxDurationMinutes: cal.MaxDurationMinutes,
	}
}

func fromDomainSchedule(schedule domain.WeekSchedule) WeekScheduleModel {
	return WeekScheduleModel{
		Monday:    fromDomainWindow(schedule.Monday),
		Tuesday:   fromDomainWindow(schedule.Tuesday),
		Wednesday: fromDomainWindow(schedule.Wednesday),
		Thursday:  fromDomainWindow(schedule.Thursday),
		Friday:    fromDomainWindow(schedule.Friday),
		Saturday:  fromDomainWindow(schedule.Saturday),
		Sunday:    fromDomainWindow(schedule.Sunday),
	}
}

func fromDomainWindow(window domain.DayWindow) DayWindowModel {
	if !window.IsOpen {
		return DayWindowModel{IsOpen: false}
	}
	return DayWindowModel{
		IsOpen:    true,
		OpenTime:  window.OpenTime.String(),
		CloseTime: window.CloseTime.String(),
	}
}
