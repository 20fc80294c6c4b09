// The `_test` suffix creates a "black box" test package: the tests can only
// use the exported API of the handlers, exactly like the router does.
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"intellimind/backend/internal/api"
	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/interfaces/mocks"
	"intellimind/backend/internal/model"
	"intellimind/backend/internal/service"
)

// setupChatHandler builds a handler whose dependencies are mocks.
func setupChatHandler(t *testing.T) (*api.ChatHandler, *mocks.MockChatStore, *mocks.MockSettingsService) {
	mockStore := mocks.NewMockChatStore(t)
	mockSettings := mocks.NewMockSettingsService(t)
	return api.NewChatHandler(mockStore, mockSettings), mockStore, mockSettings
}

// addChiURLParams simulates how the chi router injects URL parameters (e.g.
// `{chatID}`) into the request context. Without it chi.URLParam returns "".
func addChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for key, value := range params {
		chiCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

// TestChatHandler_Settings tests GET and POST /v1/settings.
func TestChatHandler_Settings(t *testing.T) {
	t.Run("Get - Success", func(t *testing.T) {
		// ARRANGE
		handler, _, mockSettings := setupChatHandler(t)
		mockSettings.On("Get", mock.Anything).Return(&service.Settings{SystemPrompt: "p", ChatMode: service.ModeGeneral}, nil).Once()

		// ACT
		req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
		rr := httptest.NewRecorder()
		handler.GetSettings(rr, req)

		// ASSERT
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"system_prompt":"p","chat_mode":"general"}`, rr.Body.String())
	})

	t.Run("Get - Failure", func(t *testing.T) {
		handler, _, mockSettings := setupChatHandler(t)
		mockSettings.On("Get", mock.Anything).Return(nil, app_errors.ErrInternal).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
		rr := httptest.NewRecorder()
		handler.GetSettings(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("Update - Success", func(t *testing.T) {
		handler, _, mockSettings := setupChatHandler(t)
		mockSettings.On("Save", mock.Anything, &service.Settings{SystemPrompt: "Be brief", ChatMode: service.ModeTechnical}).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/settings", strings.NewReader(`{"system_prompt":"Be brief","chat_mode":"technical"}`))
		rr := httptest.NewRecorder()
		handler.UpdateSettings(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Update - Invalid mode never reaches the service", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/settings", strings.NewReader(`{"chat_mode":"poetic"}`))
		rr := httptest.NewRecorder()
		handler.UpdateSettings(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr).Error, "chat_mode must be one of")
	})
}

// TestChatHandler_GetChats tests GET /v1/chats.
func TestChatHandler_GetChats(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		expected := []model.ChatSummary{{ID: "chat1", Title: "Test Chat", CreatedAt: created, MessageCount: 2}}
		mockStore.On("ListChats", mock.Anything).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
		rr := httptest.NewRecorder()
		handler.GetChats(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var returned []model.ChatSummary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &returned))
		assert.Equal(t, expected, returned)
	})

	t.Run("Failure - Service returns error", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("ListChats", mock.Anything).Return(nil, errors.New("internal error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
		rr := httptest.NewRecorder()
		handler.GetChats(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "An unexpected internal server error occurred.", decodeError(t, rr).Error)
	})
}

func TestChatHandler_SearchChats(t *testing.T) {
	handler, mockStore, _ := setupChatHandler(t)
	mockStore.On("SearchChats", mock.Anything, "pasta").Return([]model.ChatSummary{{ID: "c1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/chats/search?q=pasta", nil)
	rr := httptest.NewRecorder()
	handler.SearchChats(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"c1"`)
}

func TestChatHandler_CreateChat(t *testing.T) {
	t.Run("Success - Without body", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("CreateChat", mock.Anything, "").Return(&model.Chat{ID: "new", Messages: []model.Message{}}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/chats", nil)
		rr := httptest.NewRecorder()
		handler.CreateChat(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("Failure - Storage unavailable", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("CreateChat", mock.Anything, "Plans").Return(nil, app_errors.ErrStorage).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/chats", strings.NewReader(`{"title":"Plans"}`))
		rr := httptest.NewRecorder()
		handler.CreateChat(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, decodeError(t, rr).Error, "Chat history is unavailable")
	})
}

func TestChatHandler_GetChat(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("GetChat", mock.Anything, "chat123").Return(&model.Chat{ID: "chat123", Title: "T"}, nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/v1/chats/chat123", nil), map[string]string{"chatID": "chat123"})
		rr := httptest.NewRecorder()
		handler.GetChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Not found", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("GetChat", mock.Anything, "gone").Return(nil, app_errors.ErrNotFound).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/v1/chats/gone", nil), map[string]string{"chatID": "gone"})
		rr := httptest.NewRecorder()
		handler.GetChat(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestChatHandler_ExportChat(t *testing.T) {
	handler, mockStore, _ := setupChatHandler(t)
	chat := &model.Chat{ID: "c1", Title: "Export me", CreatedAt: time.Now()}
	chat.AppendMessage(model.RoleUser, "Hello", time.Now())
	mockStore.On("GetChat", mock.Anything, "c1").Return(chat, nil).Once()

	req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/v1/chats/c1/export", nil), map[string]string{"chatID": "c1"})
	rr := httptest.NewRecorder()
	handler.ExportChat(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rr.Body.String(), "# Export me")
	assert.Contains(t, rr.Body.String(), "Hello")
}

// TestChatHandler_UpdateChatTitle tests PUT /v1/chats/{chatID}/title.
func TestChatHandler_UpdateChatTitle(t *testing.T) {
	chatID := "chat123"

	t.Run("Success", func(t *testing.T) {
		handler, mockStore, _ := setupChatHandler(t)
		mockStore.On("RenameChat", mock.Anything, chatID, "New Title").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/v1/chats/"+chatID+"/title", strings.NewReader(`{"title":"New Title"}`))
		req = addChiURLParams(req, map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.UpdateChatTitle(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Empty title", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodPut, "/v1/chats/"+chatID+"/title", strings.NewReader(`{"title":""}`))
		req = addChiURLParams(req, map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.UpdateChatTitle(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - Malformed JSON", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodPut, "/v1/chats/"+chatID+"/title", strings.NewReader(`{"title":`))
		req = addChiURLParams(req, map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.UpdateChatTitle(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChatHandler_HandleDeleteChat(t *testing.T) {
	handler, mockStore, _ := setupChatHandler(t)
	mockStore.On("DeleteChat", mock.Anything, "c1").Return(nil).Once()
	mockStore.On("DeleteChat", mock.Anything, "c1").Return(app_errors.ErrNotFound).Once()

	for _, want := range []int{http.StatusOK, http.StatusNotFound} {
		req := addChiURLParams(httptest.NewRequest(http.MethodDelete, "/v1/chats/c1", nil), map[string]string{"chatID": "c1"})
		rr := httptest.NewRecorder()
		handler.HandleDeleteChat(rr, req)
		assert.Equal(t, want, rr.Code)
	}
}
