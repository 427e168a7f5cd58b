package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduhacktech-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `id, user_id, name, role, secondary_role, level, availability, interests,
	looking_for, bio, active, last_active, created_at, updated_at`

// CardRepository handles database operations for team finder cards
type CardRepository struct {
	db *pgxpool.Pool
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *pgxpool.Pool) *CardRepository {
	return &CardRepository{db: db}
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	err := row.Scan(
		&card.ID, &card.UserID, &card.Name, &card.Role, &card.SecondaryRole, &card.Level,
		&card.Availability, &card.Interests, &card.LookingFor, &card.Bio, &card.Active,
		&card.LastActive, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Upsert creates the user's card or replaces its editable fields.
// The unique index on user_id keeps one card per user under concurrent saves.
func (r *CardRepository) Upsert(ctx context.Context, card *models.Card) (*models.Card, error) {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			secondary_role = EXCLUDED.secondary_role,
			level = EXCLUDED.level,
			availability = EXCLUDED.availability,
			interests = EXCLUDED.interests,
			looking_for = EXCLUDED.looking_for,
			bio = EXCLUDED.bio,
			active = EXCLUDED.active,
			last_active = EXCLUDED.last_active,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + cardColumns
	saved, err := scanCard(r.db.QueryRow(ctx, query,
		card.ID, card.UserID, card.Name, card.Role, card.SecondaryRole, card.Level,
		card.Availability, card.Interests, card.LookingFor, card.Bio, card.Active,
		card.LastActive, card.CreatedAt, card.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert card: %w", translate(err))
	}
	return saved, nil
}

// GetByUserID retrieves a card by its owner
func (r *CardRepository) GetByUserID(ctx context.Context, userID string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1`
	card, err := scanCard(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card of user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// UpdateActive sets the activity status and refreshes last_active
func (r *CardRepository) UpdateActive(ctx context.Context, userID, active string, at time.Time) (*models.Card, error) {
	query := `
		UPDATE cards SET active = $2, last_active = $3, updated_at = $3
		WHERE user_id = $1
		RETURNING ` + cardColumns
	card, err := scanCard(r.db.QueryRow(ctx, query, userID, active, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card of user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update card activity: %w", err)
	}
	return card, nil
}

// ListActive returns every actively looking card except the given user's
func (r *CardRepository) ListActive(ctx context.Context, excludeUserID string) ([]*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE active = $1 AND user_id <> $2
		ORDER BY last_active DESC
	`
	return r.list(ctx, query, models.ActivityActivelyLooking, excludeUserID)
}

// ListByUserIDs returns the cards owned by the given users
func (r *CardRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = ANY($1)`
	return r.list(ctx, query, userIDs)
}

// CountActive counts actively looking cards
func (r *CardRepository) CountActive(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM cards WHERE active = $1`
	var total int64
	if err := r.db.QueryRow(ctx, query, models.ActivityActivelyLooking).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count active cards: %w", err)
	}
	return total, nil
}

func (r *CardRepository) list(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}
