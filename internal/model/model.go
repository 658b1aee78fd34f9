package model

// Role is the backend-assigned user role carried inside Identity.
type Role string

const (
	RoleStudent Role = "student"
	RoleSenior  Role = "senior"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleSenior, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated user's profile summary as returned by the
// backend on login/signup. It is owned by the session store and replaced
// wholesale, never field-patched.
type Identity struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Selection is a confirmed student->senior pairing, student's view.
// Latitude/Longitude are nil when the backend only has an address on file.
type Selection struct {
	MatchID   string   `json:"match_id"`
	SeniorID  string   `json:"senior_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

// Notification is the senior-facing projection of a Selection.
type Notification struct {
	MatchID      string `json:"match_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	StudentPhone string `json:"student_phone"`
}

// MapPerson is a coordinate-complete point ready for rendering. Every
// emitted MapPerson has finite latitude and longitude; unresolvable
// entries are dropped upstream, never emitted with placeholders.
type MapPerson struct {
	ID        string  `json:"id"`
	Role      Role    `json:"role"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapState is the resolved map dataset for the student dashboard.
type MapState struct {
	Students []MapPerson `json:"students"`
	Seniors  []MapPerson `json:"seniors"`
}

// Match is one entry of the backend's opaque ranked match list.
type Match struct {
	SeniorID     string   `json:"senior_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	TotalScore   float64  `json:"total_score"`
	DistanceKm   float64  `json:"distance_km"`
	CommonSkills []string `json:"common_skills"`
}

// Task is a senior's help-request item.
type Task struct {
	TaskID   string `json:"task_id"`
	TaskText string `json:"task_text"`
}

// GeoPoint is an optional coordinate pair as the backend serializes it.
type GeoPoint struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// StudentProfile is the student's own profile as edited from the home view.
type StudentProfile struct {
	Skills    []string `json:"skills"`
	Languages []string `json:"languages"`
}

// SeniorProfile is the senior's own profile.
type SeniorProfile struct {
	Languages []string `json:"languages"`
}
