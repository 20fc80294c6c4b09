package feedback_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/feedback"
)

func TestSQLiteSink_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mockDB, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mockDB.ExpectExec("INSERT INTO feedback").
			WithArgs(sqlmock.AnyArg(), "chat1", 5, "great", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = feedback.NewSQLiteSink(db).Record(ctx, "chat1", 5, "great")
		require.NoError(t, err)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Failure - Insert error", func(t *testing.T) {
		db, mockDB, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mockDB.ExpectExec("INSERT INTO feedback").WillReturnError(errors.New("database is locked"))

		err = feedback.NewSQLiteSink(db).Record(ctx, "chat1", 3, "")
		assert.ErrorIs(t, err, app_errors.ErrCollaborator)
	})

	t.Run("Failure - Rating out of range", func(t *testing.T) {
		db, mockDB, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		err = feedback.NewSQLiteSink(db).Record(ctx, "chat1", 9, "")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestLogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	sink := feedback.NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sink.Record(context.Background(), "chat1", 4, "helpful"))
	assert.Contains(t, buf.String(), `"chat_id":"chat1"`)
	assert.Contains(t, buf.String(), `"rating":4`)

	assert.ErrorIs(t, sink.Record(context.Background(), "", 4, ""), app_errors.ErrValidation)
}
