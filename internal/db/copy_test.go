package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "batch_places", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"batch_places"}, []string{"session_id", "place_id", "position"}).WillReturnResult(3)

	rows := [][]any{
		{"s1", "p1", 0},
		{"s1", "p2", 1},
		{"s1", "p3", 2},
	}
	n, err := CopyFrom(context.Background(), mock, "batch_places", []string{"session_id", "place_id", "position"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"batch_places"}, []string{"session_id", "place_id"}).
		WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "batch_places", []string{"session_id", "place_id"}, [][]any{{"s1", "p1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO batch_places")
	assert.NoError(t, mock.ExpectationsWereMet())
}
