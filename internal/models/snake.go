package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"snake-arena-backend/internal/dbtx"
)

// SnakeVisibility controls whether a snake can be matchmade against
// snakes it doesn't own.
type SnakeVisibility string

const (
	SnakeVisibilityPublic  SnakeVisibility = "public"
	SnakeVisibilityPrivate SnakeVisibility = "private"
)

// Snake is owned by the account subsystem; the core only ever reads it.
type Snake struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OwnerID    uuid.UUID       `json:"owner_id" db:"owner_id"`
	Name       string          `json:"name" db:"name"`
	URL        string          `json:"url" db:"url"`
	Visibility SnakeVisibility `json:"visibility" db:"visibility"`
}

// GetSnakeByID fetches a snake's row, including its remote URL — the
// turn driver uses this to resolve each match participant's endpoint.
func GetSnakeByID(ctx context.Context, q dbtx.Querier, id uuid.UUID) (*Snake, error) {
	row := q.QueryRow(ctx, `
		SELECT id, owner_id, name, url, visibility
		FROM snakes WHERE id = $1`, id)

	var s Snake
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.URL, &s.Visibility); err != nil {
		return nil, fmt.Errorf("fetch snake %s: %w", id, err)
	}
	return &s, nil
}
