package calendarcfg

import "errors"

var (
	// ErrCalendarNotFound возвращается, когда собственный календарь
	// ресурса не настроен
	ErrCalendarNotFound = errors.New("calendar not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
