package timeline

import "errors"

var (
	// ErrConflict возвращается при попытке вставить интервал, пересекающийся с живой записью
	ErrConflict = errors.New("timeline: interval overlaps an existing entry")

	// ErrDuplicateEntry возвращается при повторной вставке того же appointment id
	ErrDuplicateEntry = errors.New("timeline: appointment already present")
)
