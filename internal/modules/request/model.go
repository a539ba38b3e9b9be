// README: Transport request aggregate, status definitions, and input validation.
package request

import (
	"time"

	"porter/internal/types"
)

type Status string

const (
	StatusNone        Status = "none"
	StatusPending     Status = "pending"
	StatusAssigned    Status = "assigned"
	StatusAccepted    Status = "accepted"
	StatusEnRoute     Status = "en_route"
	StatusWithPatient Status = "with_patient"
	StatusComplete    Status = "complete"
	StatusCancelled   Status = "cancelled"
)

type Priority string

const (
	PriorityRoutine Priority = "routine"
	PriorityStat    Priority = "stat"
)

type Floor string

const (
	FloorFCC1 Floor = "FCC1"
	FloorFCC2 Floor = "FCC2"
	FloorFCC3 Floor = "FCC3"
	FloorFCC4 Floor = "FCC4"
)

// roomRanges maps each floor to its valid room numbers (inclusive).
var roomRanges = map[Floor][2]int{
	FloorFCC1: {100, 199},
	FloorFCC2: {200, 299},
	FloorFCC3: {300, 399},
	FloorFCC4: {400, 499},
}

// specialNeedTags is the fixed vocabulary of transport special needs.
var specialNeedTags = map[string]bool{
	"wheelchair": true,
	"stretcher":  true,
	"oxygen":     true,
	"isolation":  true,
	"monitor":    true,
	"iv_pole":    true,
	"bariatric":  true,
}

type TransportRequest struct {
	ID              types.ID
	OriginFloor     Floor
	Room            int
	PatientInitials string
	Destination     string
	Priority        Priority
	SpecialNeeds    []string
	Notes           string
	Status          Status
	StatusVersion   int
	CreatedBy       types.ID
	AssignedTo      *types.ID
	CreatedAt       time.Time
	AssignedAt      *time.Time
	AcceptedAt      *time.Time
	EnRouteAt       *time.Time
	WithPatientAt   *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

// HistoryRecord is one immutable audit entry, appended per accepted transition.
type HistoryRecord struct {
	ID         int64
	RequestID  types.ID
	ActorID    types.ID
	FromStatus Status
	ToStatus   Status
	CreatedAt  time.Time
}

// AllowedTransitions encodes the request lifecycle. cancelled is reachable
// from every non-terminal state; complete and cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:     {StatusAssigned, StatusAccepted, StatusCancelled},
	StatusAssigned:    {StatusAccepted, StatusCancelled},
	StatusAccepted:    {StatusEnRoute, StatusCancelled},
	StatusEnRoute:     {StatusWithPatient, StatusCancelled},
	StatusWithPatient: {StatusComplete, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// Active reports whether the status counts toward a transporter's workload.
func (s Status) Active() bool {
	switch s {
	case StatusAssigned, StatusAccepted, StatusEnRoute, StatusWithPatient:
		return true
	}
	return false
}

// MilestoneAt returns the timestamp at which the request entered its current
// status. Exactly one milestone corresponds to each status.
func (r *TransportRequest) MilestoneAt() time.Time {
	switch r.Status {
	case StatusAssigned:
		return deref(r.AssignedAt, r.CreatedAt)
	case StatusAccepted:
		return deref(r.AcceptedAt, r.CreatedAt)
	case StatusEnRoute:
		return deref(r.EnRouteAt, r.CreatedAt)
	case StatusWithPatient:
		return deref(r.WithPatientAt, r.CreatedAt)
	case StatusComplete:
		return deref(r.CompletedAt, r.CreatedAt)
	case StatusCancelled:
		return deref(r.CancelledAt, r.CreatedAt)
	default:
		return r.CreatedAt
	}
}

func deref(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}

func ValidFloor(f Floor) bool {
	_, ok := roomRanges[f]
	return ok
}

func ValidRoom(f Floor, room int) bool {
	r, ok := roomRanges[f]
	if !ok {
		return false
	}
	return room >= r[0] && room <= r[1]
}

func ValidPriority(p Priority) bool {
	return p == PriorityRoutine || p == PriorityStat
}

func ValidSpecialNeeds(tags []string) bool {
	for _, t := range tags {
		if !specialNeedTags[t] {
			return false
		}
	}
	return true
}
