package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"
	"eduhacktech-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventService handles events and the registration workflow:
// registration status, problem statement review and payment completion.
type EventService struct {
	events   EventStore
	regs     RegistrationStore
	notifier Notifier
}

// NewEventService creates a new event service
func NewEventService(events EventStore, regs RegistrationStore, notifier Notifier) *EventService {
	return &EventService{
		events:   events,
		regs:     regs,
		notifier: notifier,
	}
}

// EventInput describes a new event
type EventInput struct {
	Title           string
	Description     string
	RegistrationFee float64
	TeamSize        models.TeamSize
	StartDate       time.Time
	EndDate         time.Time
}

// CreateEvent creates an event owned by the calling organizer
func (s *EventService) CreateEvent(ctx context.Context, caller Identity, in EventInput) (*models.Event, error) {
	if !caller.IsStaff() {
		return nil, apperr.Forbidden("Only organizers can create events")
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, apperr.Invalid("title is required")
	case in.RegistrationFee < 0:
		return nil, apperr.Invalid("registrationFee cannot be negative")
	case in.TeamSize.Min < 1:
		return nil, apperr.Invalid("teamSize.min must be at least 1")
	case in.TeamSize.Max < in.TeamSize.Min:
		return nil, apperr.Invalid("teamSize.max cannot be less than teamSize.min")
	case in.EndDate.Before(in.StartDate):
		return nil, apperr.Invalid("endDate cannot be before startDate")
	}

	ev := &models.Event{
		ID:              uuid.New().String(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		OrganizerID:     caller.UserID,
		RegistrationFee: in.RegistrationFee,
		TeamSize:        in.TeamSize,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		CreatedAt:       time.Now(),
	}

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, apperr.Internal("failed to create event", err)
	}
	return ev, nil
}

// ListEvents returns all events by start date
func (s *EventService) ListEvents(ctx context.Context) ([]*models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list events", err)
	}
	if events == nil {
		events = []*models.Event{}
	}
	return events, nil
}

// GetEvent returns one event
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "Event not found", "failed to load event")
	}
	return ev, nil
}

// ProblemStatementInput is a submitted project idea
type ProblemStatementInput struct {
	Title       string
	Description string
	DocumentURL string
}

func (in *ProblemStatementInput) complete() bool {
	return in != nil && strings.TrimSpace(in.Title) != "" && strings.TrimSpace(in.Description) != ""
}

// RegistrationInput is a team submission for an event
type RegistrationInput struct {
	TeamName         string
	TeamMembers      []models.TeamMember
	Locality         string
	ProblemStatement *ProblemStatementInput
}

func (in *RegistrationInput) validate(ev *models.Event) error {
	if strings.TrimSpace(in.TeamName) == "" {
		return apperr.Invalid("Team name is required")
	}
	if len(in.TeamMembers) == 0 {
		return apperr.Invalid("At least one team member is required")
	}
	for i, m := range in.TeamMembers {
		if !validation.Check(m.Name, "notblank") {
			return apperr.Invalid("Team member %d: name is required", i+1)
		}
		if !validation.Check(strings.TrimSpace(m.Email), "required,email") {
			return apperr.Invalid("Team member %d: a valid email is required", i+1)
		}
	}
	if n := len(in.TeamMembers); n < ev.TeamSize.Min {
		return apperr.Invalid("Team size must be at least %d members", ev.TeamSize.Min)
	} else if ev.TeamSize.Max > 0 && n > ev.TeamSize.Max {
		return apperr.Invalid("Team size cannot exceed %d members", ev.TeamSize.Max)
	}
	if ev.IsPaid() && !in.ProblemStatement.complete() {
		return apperr.Invalid("Problem statement title and description are required for paid events")
	}
	return nil
}

// Register submits the caller's team for an event
func (s *EventService) Register(ctx context.Context, eventID, userID string, in RegistrationInput) (*models.Registration, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "Event not found", "failed to load event")
	}

	if err := in.validate(ev); err != nil {
		return nil, err
	}

	if _, err := s.regs.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, apperr.Conflict("You are already registered for this event")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to check registration", err)
	}

	members := make([]models.TeamMember, len(in.TeamMembers))
	for i, m := range in.TeamMembers {
		role := models.MemberMember
		if i == 0 {
			role = models.MemberLeader
		}
		members[i] = models.TeamMember{
			Name:  strings.TrimSpace(m.Name),
			Email: strings.ToLower(strings.TrimSpace(m.Email)),
			Role:  role,
		}
	}

	now := time.Now()
	reg := &models.Registration{
		ID:            uuid.New().String(),
		EventID:       eventID,
		UserID:        userID,
		TeamName:      strings.TrimSpace(in.TeamName),
		TeamMembers:   members,
		Locality:      strings.TrimSpace(in.Locality),
		Status:        models.RegistrationRegistered,
		PaymentStatus: models.PaymentNotRequired,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if ev.IsPaid() {
		reg.Status = models.RegistrationPending
		reg.PaymentStatus = models.PaymentPending
		reg.PaymentAmount = ev.RegistrationFee
		reg.ProblemStatement = &models.ProblemStatement{
			Title:       strings.TrimSpace(in.ProblemStatement.Title),
			Description: strings.TrimSpace(in.ProblemStatement.Description),
			DocumentURL: strings.TrimSpace(in.ProblemStatement.DocumentURL),
			Status:      models.ProblemPendingReview,
			SubmittedAt: now,
		}
	}

	if err := s.regs.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("You are already registered for this event")
		}
		return nil, apperr.Internal("failed to create registration", err)
	}

	if err := s.events.AdjustParticipantCount(ctx, eventID, 1); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to increment participant count")
	}

	return reg, nil
}

// Unregister removes the caller's registration
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) error {
	reg, err := s.regs.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return storeErr(err, "Registration not found", "failed to load registration")
	}

	if err := s.regs.Delete(ctx, reg.ID); err != nil {
		return storeErr(err, "Registration not found", "failed to delete registration")
	}

	if err := s.events.AdjustParticipantCount(ctx, eventID, -1); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to decrement participant count")
	}
	return nil
}

// RegistrationView pairs a registration with its event
type RegistrationView struct {
	*models.Registration
	Event *models.Event `json:"event,omitempty"`
}

// MyRegistrations lists the caller's registrations with their events
func (s *EventService) MyRegistrations(ctx context.Context, userID string) ([]RegistrationView, error) {
	regs, err := s.regs.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list registrations", err)
	}

	events := map[string]*models.Event{}
	views := make([]RegistrationView, 0, len(regs))
	for _, reg := range regs {
		ev, ok := events[reg.EventID]
		if !ok {
			ev, err = s.events.GetByID(ctx, reg.EventID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.Internal("failed to load event", err)
			}
			events[reg.EventID] = ev
		}
		views = append(views, RegistrationView{Registration: reg, Event: ev})
	}
	return views, nil
}

// authorizeOrganizer allows admins and the event's own organizer
func authorizeOrganizer(caller Identity, ev *models.Event) error {
	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role == models.RoleOrganizer && ev.OrganizerID == caller.UserID {
		return nil
	}
	return apperr.Forbidden("Only the event organizer or an admin can manage registrations")
}

// eventRegistration loads an event and one of its registrations for an organizer action
func (s *EventService) eventRegistration(ctx context.Context, caller Identity, eventID, regID string) (*models.Event, *models.Registration, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, storeErr(err, "Event not found", "failed to load event")
	}
	if err := authorizeOrganizer(caller, ev); err != nil {
		return nil, nil, err
	}

	reg, err := s.regs.GetByID(ctx, regID)
	if err != nil {
		return nil, nil, storeErr(err, "Registration not found", "failed to load registration")
	}
	if reg.EventID != eventID {
		return nil, nil, apperr.NotFound("Registration not found")
	}
	return ev, reg, nil
}

// EventRegistrations lists an event's registrations for its organizer
func (s *EventService) EventRegistrations(ctx context.Context, caller Identity, eventID string) ([]*models.Registration, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "Event not found", "failed to load event")
	}
	if err := authorizeOrganizer(caller, ev); err != nil {
		return nil, err
	}

	regs, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Internal("failed to list registrations", err)
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	return regs, nil
}

// UpdateRegistrationStatus approves or rejects a registration, independent of payment.
// Only pending registrations, and registered ones on free events, can be decided.
func (s *EventService) UpdateRegistrationStatus(ctx context.Context, caller Identity, eventID, regID, status string) (*models.Registration, error) {
	if status != models.RegistrationApproved && status != models.RegistrationRejected {
		return nil, apperr.Invalid("status must be approved or rejected")
	}

	_, reg, err := s.eventRegistration(ctx, caller, eventID, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending && reg.Status != models.RegistrationRegistered {
		return nil, apperr.Conflict("Registration already %s", reg.Status)
	}

	reg.Status = status
	reg.UpdatedAt = time.Now()
	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, storeErr(err, "Registration not found", "failed to update registration")
	}
	return reg, nil
}

// ReviewProblem records the organizer's decision on a pending problem statement
func (s *EventService) ReviewProblem(ctx context.Context, caller Identity, eventID, regID, status, remarks string) (*models.Registration, error) {
	if status != models.ProblemApproved && status != models.ProblemRejected {
		return nil, apperr.Invalid("status must be approved or rejected")
	}

	ev, reg, err := s.eventRegistration(ctx, caller, eventID, regID)
	if err != nil {
		return nil, err
	}

	ps := reg.ProblemStatement
	if ps == nil {
		return nil, apperr.FailedPrecondition("This registration has no problem statement")
	}
	if ps.Status != models.ProblemPendingReview {
		return nil, apperr.Conflict("Problem statement already %s", ps.Status)
	}

	now := time.Now()
	reviewer := caller.UserID
	ps.Status = status
	ps.AdminRemarks = strings.TrimSpace(remarks)
	ps.ReviewedBy = &reviewer
	ps.ReviewedAt = &now
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, storeErr(err, "Registration not found", "failed to update registration")
	}

	body := "Your problem statement for " + ev.Title + " was " + status
	if ps.AdminRemarks != "" {
		body += ": " + ps.AdminRemarks
	}
	s.notifier.Notify(ctx, reg.UserID, Notification{
		Type:  NotifyProblemReviewed,
		Title: "Problem statement " + status,
		Body:  body,
		Data:  map[string]string{"eventId": eventID, "registrationId": reg.ID, "status": status},
	})

	return reg, nil
}

// ResubmitProblem sends a rejected problem statement back to review with new content.
// A registration gets one resubmission.
func (s *EventService) ResubmitProblem(ctx context.Context, eventID, userID string, in ProblemStatementInput) (*models.Registration, error) {
	reg, err := s.regs.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, storeErr(err, "Registration not found", "failed to load registration")
	}

	ps := reg.ProblemStatement
	if ps == nil {
		return nil, apperr.FailedPrecondition("This registration has no problem statement")
	}
	if ps.Status != models.ProblemRejected {
		return nil, apperr.FailedPrecondition("Only a rejected problem statement can be resubmitted")
	}
	if ps.Resubmitted {
		return nil, apperr.FailedPrecondition("Problem statement has already been resubmitted once")
	}
	if !in.complete() {
		return nil, apperr.Invalid("Problem statement title and description are required")
	}

	now := time.Now()
	reg.ProblemStatement = &models.ProblemStatement{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DocumentURL: strings.TrimSpace(in.DocumentURL),
		Status:      models.ProblemPendingReview,
		SubmittedAt: now,
		Resubmitted: true,
	}
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, storeErr(err, "Registration not found", "failed to update registration")
	}
	return reg, nil
}

// CompletePayment marks the registration fee as paid. It is blocked until the
// problem statement, when there is one, has been approved.
func (s *EventService) CompletePayment(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "Event not found", "failed to load event")
	}

	reg, err := s.regs.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, storeErr(err, "Registration not found", "failed to load registration")
	}

	switch {
	case reg.PaymentStatus == models.PaymentNotRequired || !ev.IsPaid():
		return nil, apperr.FailedPrecondition("This event does not require payment")
	case reg.PaymentStatus == models.PaymentCompleted:
		return nil, apperr.Conflict("Payment already completed")
	case reg.Status == models.RegistrationRejected:
		return nil, apperr.FailedPrecondition("Registration was rejected by the organizer")
	case reg.ProblemStatement != nil && reg.ProblemStatement.Status != models.ProblemApproved:
		return nil, apperr.FailedPrecondition("Problem statement must be approved before payment")
	}

	now := time.Now()
	reg.PaymentStatus = models.PaymentCompleted
	reg.PaymentAmount = ev.RegistrationFee
	reg.PaymentDate = &now
	if reg.Status == models.RegistrationPending {
		reg.Status = models.RegistrationApproved
	}
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, storeErr(err, "Registration not found", "failed to update registration")
	}
	return reg, nil
}
