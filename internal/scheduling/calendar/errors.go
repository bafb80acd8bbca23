package calendar

import "errors"

var (
	// ErrInvalidDuration возвращается, когда длительность вне [min, max]
	ErrInvalidDuration = errors.New("calendar: appointment duration out of bounds")

	// ErrOutsideWorkingHours возвращается, когда интервал не лежит целиком
	// внутри рабочего окна дня
	ErrOutsideWorkingHours = errors.New("calendar: interval outside working hours")

	// ErrBlockedSlot возвращается, когда интервал пересекается с
	// заблокированным диапазоном (праздник, перерыв, обслуживание)
	ErrBlockedSlot = errors.New("calendar: interval overlaps a blocked slot")
)
