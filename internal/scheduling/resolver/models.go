package resolver

import (
	"fmt"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// Conflict отказ из-за занятого ресурса. Несет вид ресурса и его id,
// чтобы клиент мог различить "специалист занят" и "кабинет занят".
type Conflict struct {
	Kind              domain.ConflictKind
	ResourceID        string
	WithAppointmentID string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("resolver: %s %s is busy (appointment %s)", c.Kind, c.ResourceID, c.WithAppointmentID)
}

// Unwrap позволяет проверять отказ через errors.Is(err, ErrResourceBusy)
func (c *Conflict) Unwrap() error {
	return ErrResourceBusy
}

// CalendarViolation отказ бизнес-календаря с указанием ресурса,
// календарь которого нарушен. Reason - одна из sentinel-ошибок пакета calendar.
type CalendarViolation struct {
	ResourceID string
	Reason     error
}

func (v *CalendarViolation) Error() string {
	return fmt.Sprintf("resolver: resource %s: %v", v.ResourceID, v.Reason)
}

// Unwrap пробрасывает причину для errors.Is по ошибкам пакета calendar
func (v *CalendarViolation) Unwrap() error {
	return v.Reason
}
