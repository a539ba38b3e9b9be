// README: Transporter presence/status record; one row per user, overwritten on change.
package roster

import (
	"time"

	"porter/internal/types"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusAssigned    Status = "assigned"
	StatusAccepted    Status = "accepted"
	StatusEnRoute     Status = "en_route"
	StatusWithPatient Status = "with_patient"
	StatusOnBreak     Status = "on_break"
	StatusOffUnit     Status = "off_unit"
	StatusOffline     Status = "offline"
)

type Record struct {
	UserID    types.ID
	Status    Status
	UpdatedAt time.Time
}

// selfSettable are the statuses a transporter may set on themselves; the
// assignment-derived statuses are written by the lifecycle engine only.
var selfSettable = map[Status]bool{
	StatusAvailable: true,
	StatusOnBreak:   true,
	StatusOffUnit:   true,
	StatusOffline:   true,
}

func SelfSettable(s Status) bool {
	return selfSettable[s]
}
