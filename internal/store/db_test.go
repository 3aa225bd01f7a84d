package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert course: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNilDB(t *testing.T) {
	var d *DB
	assert.NoError(t, d.Close())
	assert.False(t, d.Healthy(context.Background()))
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "postgres://u:p@db:5432/anchor?sslmode=disable", want: "pgx5://u:p@db:5432/anchor?sslmode=disable"},
		{in: "postgresql://db/anchor", want: "pgx5://db/anchor"},
		{in: "pgx5://db/anchor", want: "pgx5://db/anchor"},
		{in: "mysql://db/anchor", wantErr: true},
	}
	for _, tt := range tests {
		got, err := migrateURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
