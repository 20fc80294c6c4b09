package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	app_errors "intellimind/backend/internal/errors"
)

// ChatMode selects the conversation style appended to the system prompt.
type ChatMode string

const (
	ModeGeneral   ChatMode = "general"
	ModeCreative  ChatMode = "creative"
	ModeTechnical ChatMode = "technical"
	ModeAcademic  ChatMode = "academic"
)

var modeInstructions = map[ChatMode]string{
	ModeGeneral:   "",
	ModeCreative:  "Answer imaginatively. Prefer vivid language, fresh ideas and playful examples.",
	ModeTechnical: "Answer precisely. Prefer concrete steps, code where it helps and exact terminology.",
	ModeAcademic:  "Answer rigorously. Structure the reply, define terms and note assumptions and sources of uncertainty.",
}

// Valid reports whether m is one of the known modes.
func (m ChatMode) Valid() bool {
	_, ok := modeInstructions[m]
	return ok
}

// Settings holds the dynamic application settings stored in the settings table.
type Settings struct {
	SystemPrompt string   `json:"system_prompt"`
	ChatMode     ChatMode `json:"chat_mode"`
}

// SystemInstruction is the system message prepended to every LLM request. It
// is never stored with the chat.
func (s *Settings) SystemInstruction() string {
	parts := make([]string, 0, 2)
	if p := strings.TrimSpace(s.SystemPrompt); p != "" {
		parts = append(parts, p)
	}
	if instr := modeInstructions[s.ChatMode]; instr != "" {
		parts = append(parts, instr)
	}
	return strings.Join(parts, "\n\n")
}

type SettingsService struct {
	db *sql.DB
}

func NewSettingsService(db *sql.DB) *SettingsService {
	return &SettingsService{db: db}
}

// InitAndGet returns the stored settings, writing defaults first when the
// table has never been populated.
func (s *SettingsService) InitAndGet(ctx context.Context, defaultSystemPrompt string) (*Settings, error) {
	settings, err := s.Get(ctx)
	if err == nil {
		slog.Info("Found existing settings in database.")
		return settings, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	slog.Info("No settings found. Initializing defaults.")
	initial := &Settings{SystemPrompt: defaultSystemPrompt, ChatMode: ModeGeneral}
	if err := s.save(ctx, initial); err != nil {
		return nil, fmt.Errorf("failed to save initial settings: %w", err)
	}
	return initial, nil
}

// Get reads the current settings. It returns sql.ErrNoRows when nothing was
// ever saved.
func (s *SettingsService) Get(ctx context.Context) (*Settings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := &Settings{ChatMode: ModeGeneral}
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		found = true
		switch key {
		case "system_prompt":
			settings.SystemPrompt = value
		case "chat_mode":
			if mode := ChatMode(value); mode.Valid() {
				settings.ChatMode = mode
			} else {
				slog.Warn("Ignoring unknown chat mode in settings", "chat_mode", value)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if !found {
		return nil, sql.ErrNoRows
	}
	return settings, nil
}

// Save validates and stores settings.
func (s *SettingsService) Save(ctx context.Context, settings *Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are required", app_errors.ErrValidation)
	}
	if settings.ChatMode == "" {
		settings.ChatMode = ModeGeneral
	}
	if !settings.ChatMode.Valid() {
		return fmt.Errorf("%w: chat mode '%s' is not supported", app_errors.ErrValidation, settings.ChatMode)
	}
	return s.save(ctx, settings)
}

func (s *SettingsService) save(ctx context.Context, settings *Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, "system_prompt", settings.SystemPrompt); err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	if _, err := stmt.ExecContext(ctx, "chat_mode", string(settings.ChatMode)); err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	return nil
}
