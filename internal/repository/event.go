package repository

import (
	"context"
	"errors"
	"fmt"

	"eduhacktech-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, organizer_id, registration_fee, team_size_min, team_size_max,
	participant_count, start_date, end_date, created_at`

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.OrganizerID, &ev.RegistrationFee,
		&ev.TeamSize.Min, &ev.TeamSize.Max, &ev.ParticipantCount,
		&ev.StartDate, &ev.EndDate, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	query := `INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		ev.ID, ev.Title, ev.Description, ev.OrganizerID, ev.RegistrationFee,
		ev.TeamSize.Min, ev.TeamSize.Max, ev.ParticipantCount,
		ev.StartDate, ev.EndDate, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", translate(err))
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	ev, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// List returns all events ordered by start date
func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_date ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// AdjustParticipantCount adds delta to the participant counter, never going below zero
func (r *EventRepository) AdjustParticipantCount(ctx context.Context, id string, delta int) error {
	query := `UPDATE events SET participant_count = GREATEST(participant_count + $2, 0) WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust participant count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}
