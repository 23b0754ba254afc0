// Package chunks provides read access to document chunks, the text units the
// classification pipeline operates on. Chunk ingestion happens upstream;
// this service only reads.
package chunks

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/pkg/repository"
)

// ErrNotFound indicates the requested chunk does not exist.
var ErrNotFound = errors.New("chunk not found")

// Chunk is a unit of document text.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// System defines read access to stored chunks.
type System interface {
	Get(ctx context.Context, id uuid.UUID) (*Chunk, error)
}

const getQ = `
	SELECT id, content, created_at
	FROM chunks
	WHERE id = $1`

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a chunk repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "chunks"),
	}
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*Chunk, error) {
	chunk, err := repository.QueryOne(
		ctx, r.db, getQ,
		[]any{id},
		scanChunk,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &chunk, nil
}

func scanChunk(s repository.Scanner) (Chunk, error) {
	var c Chunk
	err := s.Scan(&c.ID, &c.Content, &c.CreatedAt)
	return c, err
}
