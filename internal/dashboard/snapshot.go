package dashboard

import (
	"time"

	"marletmeets/client/internal/model"
)

// StudentData is the student dashboard's exposed state: confirmed
// selections plus the resolved map dataset.
type StudentData struct {
	Selections   []model.Selection `json:"selections"`
	StudentPhone string            `json:"student_phone"`
	Map          model.MapState    `json:"map"`
}

// SeniorData is the senior dashboard's exposed state.
type SeniorData struct {
	Notifications []model.Notification `json:"notifications"`
	SeniorPhone   string               `json:"senior_phone"`
}

// Snapshot is the consistent view handed to the render layer. LoadError
// is only ever set by the initial load; background refresh failures leave
// the previous data visible.
type Snapshot struct {
	Role        model.Role   `json:"role"`
	Initialized bool         `json:"initialized"`
	LoadError   string       `json:"load_error,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Student     *StudentData `json:"student,omitempty"`
	Senior      *SeniorData  `json:"senior,omitempty"`
}
