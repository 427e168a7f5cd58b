package repository

import (
	"context"
	"errors"
	"fmt"

	"eduhacktech-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrationColumns = `id, event_id, user_id, team_name, team_members, locality, status,
	problem_statement, payment_status, payment_amount, payment_date, created_at, updated_at`

// RegistrationRepository handles database operations for event registrations.
// Team members and the problem statement are stored as JSONB sub-documents.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.TeamName, &reg.TeamMembers, &reg.Locality,
		&reg.Status, &reg.ProblemStatement, &reg.PaymentStatus, &reg.PaymentAmount,
		&reg.PaymentDate, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create creates a registration. A second one for the same event and user yields ErrDuplicate.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.Exec(ctx, query,
		reg.ID, reg.EventID, reg.UserID, reg.TeamName, reg.TeamMembers, reg.Locality,
		reg.Status, reg.ProblemStatement, reg.PaymentStatus, reg.PaymentAmount,
		reg.PaymentDate, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a registration by ID
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEventAndUser retrieves the user's registration for an event
func (r *RegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2`
	return r.getOne(ctx, query, eventID, userID)
}

// ListByUser returns the user's registrations, newest first
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListByEvent returns the registrations of an event, oldest first
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, eventID)
}

// Update saves the mutable fields of a registration in a single statement
func (r *RegistrationRepository) Update(ctx context.Context, reg *models.Registration) error {
	query := `
		UPDATE registrations SET
			status = $2,
			problem_statement = $3,
			payment_status = $4,
			payment_amount = $5,
			payment_date = $6,
			updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		reg.ID, reg.Status, reg.ProblemStatement, reg.PaymentStatus,
		reg.PaymentAmount, reg.PaymentDate, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("registration %s: %w", reg.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a registration by ID
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM registrations WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("registration %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *RegistrationRepository) getOne(ctx context.Context, query string, args ...any) (*models.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registration: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}

	return regs, nil
}
