package coordinator

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	// (пустой пациент, пустой набор специалистов, вывернутый интервал)
	ErrInvalidInput = errors.New("coordinator: invalid input data")

	// ErrAppointmentNotFound возвращается, когда прием не найден
	ErrAppointmentNotFound = errors.New("coordinator: appointment not found")

	// ErrVersionConflict возвращается при несовпадении expectedVersion -
	// клиент работает с устаревшим состоянием приема
	ErrVersionConflict = errors.New("coordinator: stale appointment version")

	// ErrInvalidTransition возвращается при недопустимой смене статуса
	ErrInvalidTransition = errors.New("coordinator: illegal status transition")

	// ErrBusy возвращается, когда дедлайн запроса истек до получения
	// блокировок ресурсов; состояние при этом не изменено
	ErrBusy = errors.New("coordinator: timed out waiting for resource locks")

	// ErrInternal возвращается при ошибках персистентности и других
	// внутренних сбоях; откат выполнен, повтор безопасен
	ErrInternal = errors.New("coordinator: internal error")
)
