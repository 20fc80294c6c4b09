package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"intellimind/backend/internal/interfaces"
	"intellimind/backend/internal/service"
)

// SessionHandler serves the per-user session endpoints: the active chat, the
// message turn and feedback.
type SessionHandler struct {
	sessions interfaces.SessionManager
}

func NewSessionHandler(sessions interfaces.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// OpenSession godoc
// @Summary      Open a session
// @Description  Starts a session. Its active chat is the most recently created chat, if any.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  service.SessionInfo
// @Router       /v1/sessions [post]
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.OpenSession(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

// GetSession godoc
// @Summary      Get a session
// @Description  Returns the active chat, the turn state and the analytics of a session.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  service.SessionInfo
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.SessionInfo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}

// CloseSession godoc
// @Summary      Close a session
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [delete]
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// SwitchChat godoc
// @Summary      Switch the active chat
// @Description  Only allowed while no response is pending in the session.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string             true  "Session ID"
// @Param        chat       body      SwitchChatRequest  true  "Chat to activate"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/active [put]
func (h *SessionHandler) SwitchChat(w http.ResponseWriter, r *http.Request) {
	var req SwitchChatRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.sessions.SwitchTo(r.Context(), chi.URLParam(r, "sessionID"), req.ChatID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// SubmitMessage godoc
// @Summary      Send a message
// @Description  Runs one turn on the active chat, creating a chat when none is active. On a model failure the user message is kept and the error kind is returned.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string                true  "Session ID"
// @Param        message    body      SubmitMessageRequest  true  "User message"
// @Success      200        {object}  service.TurnResult
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Failure      429        {object}  ErrorResponse
// @Failure      502        {object}  ErrorResponse
// @Failure      504        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/messages [post]
func (h *SessionHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req SubmitMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	result, err := h.sessions.Submit(r.Context(), chi.URLParam(r, "sessionID"), service.SubmitRequest{
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// DeleteChat godoc
// @Summary      Delete a chat from a session
// @Description  Deletes the chat and clears the session's active chat if it pointed there.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        chatID     path      string  true  "Chat ID"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/chats/{chatID} [delete]
func (h *SessionHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.DeleteChat(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// RecordFeedback godoc
// @Summary      Rate a chat
// @Description  Feedback is delivered in the background; delivery failures are only logged.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string           true  "Session ID"
// @Param        chatID     path      string           true  "Chat ID"
// @Param        feedback   body      FeedbackRequest  true  "Rating from 1 to 5"
// @Success      202        {object}  StatusResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/chats/{chatID}/feedback [post]
func (h *SessionHandler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	err := h.sessions.RecordFeedback(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "chatID"), req.Rating, req.Comment)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}
