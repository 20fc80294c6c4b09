package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intellimind/backend/internal/interfaces"
	"intellimind/backend/internal/service"
)

// ChatHandler serves chat CRUD and the application settings. It depends only
// on interfaces, never on concrete services.
type ChatHandler struct {
	store    interfaces.ChatStore
	settings interfaces.SettingsService
}

func NewChatHandler(store interfaces.ChatStore, settings interfaces.SettingsService) *ChatHandler {
	return &ChatHandler{store: store, settings: settings}
}

// GetSettings godoc
// @Summary      Get application settings
// @Description  Retrieves the system prompt and the chat mode.
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  service.Settings
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/settings [get]
func (h *ChatHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Update application settings
// @Description  Saves the system prompt and chat mode used for every following turn.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      UpdateSettingsRequest  true  "New settings"
// @Success      200       {object}  service.Settings
// @Failure      400       {object}  ErrorResponse
// @Failure      503       {object}  ErrorResponse
// @Router       /v1/settings [post]
func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	settings := &service.Settings{SystemPrompt: req.SystemPrompt, ChatMode: service.ChatMode(req.ChatMode)}
	if err := h.settings.Save(r.Context(), settings); err != nil {
		respondWithError(w, err)
		return
	}
	slog.Info("Settings updated", "chat_mode", settings.ChatMode)
	respondWithJSON(w, http.StatusOK, settings)
}

// GetChats godoc
// @Summary      List chats
// @Description  Lists all chats, most recently created first.
// @Tags         Chats
// @Produce      json
// @Success      200  {array}   model.ChatSummary
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.ListChats(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// SearchChats godoc
// @Summary      Search chats
// @Description  Case-insensitive search over chat titles and message contents.
// @Tags         Chats
// @Produce      json
// @Param        q    query     string  false  "Search text"
// @Success      200  {array}   model.ChatSummary
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/chats/search [get]
func (h *ChatHandler) SearchChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.SearchChats(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// CreateChat godoc
// @Summary      Create a chat
// @Description  Creates an empty chat. Without a title a placeholder is used until the first message.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chat  body      CreateChatRequest  false  "Optional title"
// @Success      201   {object}  model.Chat
// @Failure      400   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Router       /v1/chats [post]
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			respondWithError(w, err)
			return
		}
	}
	chat, err := h.store.CreateChat(r.Context(), req.Title)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, chat)
}

// GetChat godoc
// @Summary      Get a chat
// @Description  Retrieves a chat with its full message history.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  model.Chat
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.store.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chat)
}

// ExportChat godoc
// @Summary      Export a chat
// @Description  Renders the chat as a Markdown transcript.
// @Tags         Chats
// @Produce      text/markdown
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {string}  string
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/export [get]
func (h *ChatHandler) ExportChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.store.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="chat-`+chat.ID+`.md"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(chat.ExportMarkdown())); err != nil {
		slog.Error("Failed to write chat export", "chat_id", chat.ID, "error", err)
	}
}

// UpdateChatTitle godoc
// @Summary      Rename a chat
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chatID  path      string              true  "Chat ID"
// @Param        title   body      UpdateTitleRequest  true  "New title"
// @Success      200     {object}  StatusResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/title [put]
func (h *ChatHandler) UpdateChatTitle(w http.ResponseWriter, r *http.Request) {
	var req UpdateTitleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.store.RenameChat(r.Context(), chi.URLParam(r, "chatID"), req.Title); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleDeleteChat godoc
// @Summary      Delete a chat
// @Description  Deletes a chat outside of any session. Use the session endpoint to also clear the active chat.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  StatusResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [delete]
func (h *ChatHandler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
