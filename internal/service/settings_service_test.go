package service_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/service"
)

const upsertSetting = "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"

func setupSettingsService(t *testing.T) (*service.SettingsService, *sql.DB, sqlmock.Sqlmock) {
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	return service.NewSettingsService(db), db, mockDB
}

func TestSettingsService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Get existing settings", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows([]string{"key", "value"}).
			AddRow("system_prompt", "test prompt").
			AddRow("chat_mode", "technical")
		mockDB.ExpectQuery("SELECT key, value FROM settings").WillReturnRows(rows)

		settings, err := settingsService.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test prompt", settings.SystemPrompt)
		assert.Equal(t, service.ModeTechnical, settings.ChatMode)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Unknown mode falls back to general", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows([]string{"key", "value"}).AddRow("chat_mode", "poetic")
		mockDB.ExpectQuery("SELECT key, value FROM settings").WillReturnRows(rows)

		settings, err := settingsService.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, service.ModeGeneral, settings.ChatMode)
	})

	t.Run("Failure - DB error on get", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		expectedErr := errors.New("db error")
		mockDB.ExpectQuery("SELECT key, value FROM settings").WillReturnError(expectedErr)

		settings, err := settingsService.Get(ctx)
		require.Error(t, err)
		assert.Nil(t, settings)
		assert.Contains(t, err.Error(), expectedErr.Error())
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSettingsService_InitAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Settings already exist, just get them", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows([]string{"key", "value"}).AddRow("system_prompt", "existing")
		mockDB.ExpectQuery("SELECT key, value FROM settings").WillReturnRows(rows)

		settings, err := settingsService.InitAndGet(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, "existing", settings.SystemPrompt)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Success - No settings, initialize defaults", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		mockDB.ExpectQuery("SELECT key, value FROM settings").WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))
		mockDB.ExpectBegin()
		prep := mockDB.ExpectPrepare(regexp.QuoteMeta(upsertSetting))
		prep.ExpectExec().WithArgs("system_prompt", "default prompt").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs("chat_mode", "general").WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectCommit()

		settings, err := settingsService.InitAndGet(ctx, "default prompt")
		require.NoError(t, err)
		assert.Equal(t, "default prompt", settings.SystemPrompt)
		assert.Equal(t, service.ModeGeneral, settings.ChatMode)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSettingsService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Save valid settings", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		mockDB.ExpectBegin()
		prep := mockDB.ExpectPrepare(regexp.QuoteMeta(upsertSetting))
		prep.ExpectExec().WithArgs("system_prompt", "new prompt").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs("chat_mode", "creative").WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectCommit()

		err := settingsService.Save(ctx, &service.Settings{SystemPrompt: "new prompt", ChatMode: service.ModeCreative})
		require.NoError(t, err)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Failure - Unknown mode", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		err := settingsService.Save(ctx, &service.Settings{ChatMode: "poetic"})
		require.Error(t, err)
		assert.ErrorIs(t, err, app_errors.ErrValidation)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("Failure - Exec error rolls back", func(t *testing.T) {
		settingsService, db, mockDB := setupSettingsService(t)
		defer func() { _ = db.Close() }()

		mockDB.ExpectBegin()
		prep := mockDB.ExpectPrepare(regexp.QuoteMeta(upsertSetting))
		prep.ExpectExec().WithArgs("system_prompt", "p").WillReturnError(errors.New("disk full"))
		mockDB.ExpectRollback()

		err := settingsService.Save(ctx, &service.Settings{SystemPrompt: "p"})
		require.Error(t, err)
		assert.ErrorIs(t, err, app_errors.ErrStorage)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSettings_SystemInstruction(t *testing.T) {
	s := &service.Settings{SystemPrompt: "You are IntelliMind.", ChatMode: service.ModeGeneral}
	assert.Equal(t, "You are IntelliMind.", s.SystemInstruction())

	s.ChatMode = service.ModeAcademic
	assert.Contains(t, s.SystemInstruction(), "You are IntelliMind.\n\n")
	assert.Contains(t, s.SystemInstruction(), "rigorously")

	assert.Empty(t, (&service.Settings{}).SystemInstruction())
}
