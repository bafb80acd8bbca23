package auditsink

import "time"

// StateChangeRecord тело события смены состояния приема для журнала аудита
type StateChangeRecord struct {
	AppointmentID    string   `json:"appointment_id"`
	PreviousStatus   string   `json:"previous_status,omitempty"`
	NewStatus        string   `json:"new_status"`
	ResourcesTouched []string `json:"resources_touched"`
	Timestamp        string   `json:"timestamp"`
}

// ErrorResponse модель ошибки от сервиса аудита
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const timestampLayout = time.RFC3339Nano
