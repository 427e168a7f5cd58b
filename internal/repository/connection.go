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

const connectionColumns = `id, from_user_id, to_user_id, event_id, message, status, responded_at, created_at`

// ConnectionRepository handles database operations for connect requests
type ConnectionRepository struct {
	db *pgxpool.Pool
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func scanConnection(row pgx.Row) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	err := row.Scan(
		&req.ID, &req.FromUserID, &req.ToUserID, &req.EventID, &req.Message,
		&req.Status, &req.RespondedAt, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a new request. A second request for the same ordered pair yields ErrDuplicate.
func (r *ConnectionRepository) Create(ctx context.Context, req *models.ConnectionRequest) error {
	query := `INSERT INTO connection_requests (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		req.ID, req.FromUserID, req.ToUserID, req.EventID, req.Message,
		req.Status, req.RespondedAt, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create connection request: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a request by ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connection_requests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByPair retrieves the request sent from one user to another
func (r *ConnectionRepository) GetByPair(ctx context.Context, fromUserID, toUserID string) (*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + `
		FROM connection_requests
		WHERE from_user_id = $1 AND to_user_id = $2`
	return r.getOne(ctx, query, fromUserID, toUserID)
}

// FindAccepted returns an accepted request between two users in either direction
func (r *ConnectionRepository) FindAccepted(ctx context.Context, userA, userB string) (*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + `
		FROM connection_requests
		WHERE status = $3
			AND ((from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1))
		ORDER BY created_at
		LIMIT 1`
	return r.getOne(ctx, query, userA, userB, models.ConnectionAccepted)
}

// ListForUser returns every request the user sent or received, newest first
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + `
		FROM connection_requests
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connection requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.ConnectionRequest
	for rows.Next() {
		req, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connection requests: %w", err)
	}

	return reqs, nil
}

// Resolve moves a pending request to its final status.
// It reports false when the request was no longer pending.
func (r *ConnectionRepository) Resolve(ctx context.Context, id, status string, at time.Time) (bool, error) {
	query := `
		UPDATE connection_requests SET status = $2, responded_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, id, status, at, models.ConnectionPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve connection request: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *ConnectionRepository) getOne(ctx context.Context, query string, args ...any) (*models.ConnectionRequest, error) {
	req, err := scanConnection(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("connection request: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get connection request: %w", err)
	}
	return req, nil
}
