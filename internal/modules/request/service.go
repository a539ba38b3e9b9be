// README: Lifecycle engine; validates and applies status transitions, owns all request mutation.
package request

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"porter/internal/types"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor not authorized for this transition")
	ErrConflict          = errors.New("request state conflict")
	ErrValidation        = errors.New("invalid request payload")
)

// Actor identifies who is driving a transition.
type Actor struct {
	ID   types.ID
	Role types.Role
}

// SystemActor is the auto-assign identity; it carries dispatcher authority.
var SystemActor = Actor{ID: "system:auto-assign", Role: types.RoleDispatcher}

// Publisher is the realtime fan-out seam. Events are published only after the
// transition has committed.
type Publisher interface {
	Publish(event string, payload any, scope string)
}

// Transition is the unit of work handed to the store. The store must apply it
// atomically and only if the row still matches (From, ExpectedVersion); zero
// rows affected signals a concurrent writer won.
type Transition struct {
	RequestID       types.ID
	From, To        Status
	ExpectedVersion int
	ActorID         types.ID
	NewAssignee     *types.ID // nil keeps the current assignee
	OccurredAt      time.Time

	// Roster side effect, applied in the same transaction.
	RosterUserID     *types.ID
	RosterStatus     string
	RosterOnlyIfIdle bool // only set status when the user has no other active request
}

type Store interface {
	Create(ctx context.Context, r *TransportRequest, h *HistoryRecord) error
	Get(ctx context.Context, id types.ID) (*TransportRequest, error)
	List(ctx context.Context, f ListFilter) ([]*TransportRequest, error)
	ApplyTransition(ctx context.Context, t Transition, h *HistoryRecord) (bool, error)
	History(ctx context.Context, id types.ID) ([]HistoryRecord, error)
}

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	Status     Status
	AssignedTo types.ID
	ActiveOnly bool
	// PendingQueue orders pending unassigned requests stat-first then oldest;
	// this ordering is the matcher's tie-break contract.
	PendingQueue bool
}

type Service struct {
	store             Store
	pub               Publisher
	log               *zap.Logger
	claimDirectAccept bool
	now               func() time.Time
}

func NewService(store Store, pub Publisher, log *zap.Logger, claimDirectAccept bool) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:             store,
		pub:               pub,
		log:               log,
		claimDirectAccept: claimDirectAccept,
		now:               time.Now,
	}
}

type CreateCommand struct {
	OriginFloor     Floor
	Room            int
	PatientInitials string
	Destination     string
	Priority        Priority
	SpecialNeeds    []string
	Notes           string
	CreatedBy       types.ID
}

type AdvanceCommand struct {
	RequestID types.ID
	Actor     Actor
	Target    Status
}

type AssignCommand struct {
	RequestID  types.ID
	Actor      Actor
	AssigneeID types.ID
}

type ClaimCommand struct {
	RequestID types.ID
	Actor     Actor
}

type CancelCommand struct {
	RequestID types.ID
	Actor     Actor
	Reason    string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*TransportRequest, error) {
	if !ValidFloor(cmd.OriginFloor) || !ValidRoom(cmd.OriginFloor, cmd.Room) {
		return nil, ErrValidation
	}
	if cmd.Destination == "" || cmd.CreatedBy == "" {
		return nil, ErrValidation
	}
	if cmd.Priority == "" {
		cmd.Priority = PriorityRoutine
	}
	if !ValidPriority(cmd.Priority) || !ValidSpecialNeeds(cmd.SpecialNeeds) {
		return nil, ErrValidation
	}

	now := s.now()
	r := &TransportRequest{
		ID:              types.ID(uuid.NewString()),
		OriginFloor:     cmd.OriginFloor,
		Room:            cmd.Room,
		PatientInitials: cmd.PatientInitials,
		Destination:     cmd.Destination,
		Priority:        cmd.Priority,
		SpecialNeeds:    cmd.SpecialNeeds,
		Notes:           cmd.Notes,
		Status:          StatusPending,
		StatusVersion:   0,
		CreatedBy:       cmd.CreatedBy,
		CreatedAt:       now,
	}
	h := &HistoryRecord{
		RequestID:  r.ID,
		ActorID:    cmd.CreatedBy,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, r, h); err != nil {
		return nil, err
	}
	s.publish("request_created", r)
	return r, nil
}

// Advance moves a request along the forward path
// assigned → accepted → en_route → with_patient → complete.
// Only the current assignee or a dispatcher-or-above may advance.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) error {
	if cmd.Target == StatusCancelled || cmd.Target == StatusAssigned {
		return ErrInvalidTransition
	}
	r, err := s.store.Get(ctx, cmd.RequestID)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, cmd.Target) {
		return ErrInvalidTransition
	}
	// Forward progress needs a transporter on the request. This also keeps the
	// pending→accepted edge exclusive to Claim, which sets the assignee.
	if r.AssignedTo == nil {
		return ErrInvalidTransition
	}
	if !s.mayAdvance(r, cmd.Actor) {
		return ErrForbidden
	}

	t := Transition{
		RequestID:       r.ID,
		From:            r.Status,
		To:              cmd.Target,
		ExpectedVersion: r.StatusVersion,
		ActorID:         cmd.Actor.ID,
		OccurredAt:      s.now(),
	}
	t.RosterUserID = r.AssignedTo
	if cmd.Target == StatusComplete {
		t.RosterStatus = "available"
		t.RosterOnlyIfIdle = true
	} else {
		t.RosterStatus = string(cmd.Target)
	}
	if err := s.apply(ctx, t); err != nil {
		return err
	}
	s.pub.Publish("request_status_changed", transitionPayload(r.ID, cmd.Target, r.AssignedTo), string(r.OriginFloor))
	return nil
}

// Assign pairs a pending request with a transporter, or swaps the assignee of
// an already-assigned request. Dispatcher-or-above only; the matcher acts as
// SystemActor.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) error {
	if !cmd.Actor.Role.AtLeast(types.RoleDispatcher) {
		return ErrForbidden
	}
	if cmd.AssigneeID == "" {
		return ErrValidation
	}
	r, err := s.store.Get(ctx, cmd.RequestID)
	if err != nil {
		return err
	}

	from := r.Status
	to := StatusAssigned
	switch from {
	case StatusPending:
		// normal assignment
	case StatusAssigned:
		// reassignment keeps the status, bumps the version, swaps the assignee
	default:
		return ErrInvalidTransition
	}

	assignee := cmd.AssigneeID
	t := Transition{
		RequestID:       r.ID,
		From:            from,
		To:              to,
		ExpectedVersion: r.StatusVersion,
		ActorID:         cmd.Actor.ID,
		NewAssignee:     &assignee,
		OccurredAt:      s.now(),
		RosterUserID:    &assignee,
		RosterStatus:    string(StatusAssigned),
	}
	if err := s.apply(ctx, t); err != nil {
		return err
	}
	s.pub.Publish("request_assigned", transitionPayload(r.ID, to, &assignee), string(r.OriginFloor))
	return nil
}

// Claim lets any transporter self-assign a pending request. The conditional
// update resolves races: whoever lands the write first wins, the loser gets
// ErrConflict ("already taken").
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) error {
	r, err := s.store.Get(ctx, cmd.RequestID)
	if err != nil {
		return err
	}
	if r.Status != StatusPending {
		if r.Status.Terminal() {
			return ErrInvalidTransition
		}
		return ErrConflict
	}

	to := StatusAssigned
	if s.claimDirectAccept {
		to = StatusAccepted
	}
	assignee := cmd.Actor.ID
	t := Transition{
		RequestID:       r.ID,
		From:            StatusPending,
		To:              to,
		ExpectedVersion: r.StatusVersion,
		ActorID:         cmd.Actor.ID,
		NewAssignee:     &assignee,
		OccurredAt:      s.now(),
		RosterUserID:    &assignee,
		RosterStatus:    string(to),
	}
	if err := s.apply(ctx, t); err != nil {
		return err
	}
	s.pub.Publish("request_assigned", transitionPayload(r.ID, to, &assignee), string(r.OriginFloor))
	return nil
}

// Cancel terminates a request from any non-terminal state. Dispatcher-or-above only.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	if !cmd.Actor.Role.AtLeast(types.RoleDispatcher) {
		return ErrForbidden
	}
	r, err := s.store.Get(ctx, cmd.RequestID)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return ErrInvalidTransition
	}

	t := Transition{
		RequestID:       r.ID,
		From:            r.Status,
		To:              StatusCancelled,
		ExpectedVersion: r.StatusVersion,
		ActorID:         cmd.Actor.ID,
		OccurredAt:      s.now(),
	}
	if r.AssignedTo != nil {
		t.RosterUserID = r.AssignedTo
		t.RosterStatus = "available"
		t.RosterOnlyIfIdle = true
	}
	if err := s.apply(ctx, t); err != nil {
		return err
	}
	s.pub.Publish("request_cancelled", transitionPayload(r.ID, StatusCancelled, r.AssignedTo), string(r.OriginFloor))
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*TransportRequest, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*TransportRequest, error) {
	return s.store.List(ctx, f)
}

func (s *Service) History(ctx context.Context, id types.ID) ([]HistoryRecord, error) {
	return s.store.History(ctx, id)
}

func (s *Service) apply(ctx context.Context, t Transition) error {
	h := &HistoryRecord{
		RequestID:  t.RequestID,
		ActorID:    t.ActorID,
		FromStatus: t.From,
		ToStatus:   t.To,
		CreatedAt:  t.OccurredAt,
	}
	ok, err := s.store.ApplyTransition(ctx, t, h)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *Service) mayAdvance(r *TransportRequest, actor Actor) bool {
	if actor.Role.AtLeast(types.RoleDispatcher) {
		return true
	}
	return r.AssignedTo != nil && *r.AssignedTo == actor.ID
}

func transitionPayload(id types.ID, status Status, assignee *types.ID) map[string]any {
	p := map[string]any{
		"request_id": id,
		"status":     status,
	}
	if assignee != nil {
		p["assigned_to"] = *assignee
	}
	return p
}

func (s *Service) publish(event string, r *TransportRequest) {
	s.pub.Publish(event, map[string]any{
		"request_id":   r.ID,
		"status":       r.Status,
		"priority":     r.Priority,
		"origin_floor": r.OriginFloor,
		"room":         r.Room,
		"destination":  r.Destination,
	}, string(r.OriginFloor))
}
