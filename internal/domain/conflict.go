package domain

// ConflictKind identifies which resource class caused a booking conflict,
// so callers can present "professional busy" and "room busy" distinctly.
type ConflictKind string

const (
	ConflictProfessional ConflictKind = "professional"
	ConflictRoom         ConflictKind = "room"
)
