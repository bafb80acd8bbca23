package auditsink

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("auditsink client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("auditsink client: invalid response")

	// ErrUnavailable возвращается, когда сервис аудита недоступен.
	// Доставка событий best-effort: вызывающий логирует и продолжает.
	ErrUnavailable = errors.New("auditsink client: service unavailable")
)
