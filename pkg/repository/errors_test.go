package repository_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/arbor/pkg/repository"
)

var (
	errNotFound = errors.New("record not found")
	errConflict = errors.New("record already exists")
)

func TestMapError(t *testing.T) {
	passthrough := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("query version: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errConflict},
		{"other pg error", &pgconn.PgError{Code: "23503"}, nil},
		{"unrelated error", passthrough, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errConflict)
			if tt.want != nil {
				if !errors.Is(got, tt.want) {
					t.Errorf("MapError = %v, want %v", got, tt.want)
				}
				return
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("MapError = %v, want passthrough %v", got, tt.err)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !repository.IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("expected unique violation to be detected")
	}
	if repository.IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if repository.IsUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
	wrapped := fmt.Errorf("insert mapping: %w", &pgconn.PgError{Code: "23505"})
	if !repository.IsUniqueViolation(wrapped) {
		t.Error("wrapped unique violation should be detected")
	}
}
