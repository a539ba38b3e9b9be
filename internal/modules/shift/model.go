// README: Dispatcher shift session; tracks the primary dispatcher for a shift.
package shift

import (
	"time"

	"porter/internal/types"
)

type Session struct {
	ID        types.ID
	UserID    types.ID
	IsPrimary bool
	Contact   string
	StartedAt time.Time
	EndedAt   *time.Time
}
