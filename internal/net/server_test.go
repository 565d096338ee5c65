package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/auth"
	"github.com/gridrealm/server/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Hour)
	return NewServer(config.Defaults(), tokens, nil, zap.NewNop())
}

func postLogin(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesToken(t *testing.T) {
	s := testServer(t)
	s.Login = func(_ context.Context, username, password string) (string, error) {
		if username == "alice" && password == "hunter2" {
			return s.tokens.Mint(42), nil
		}
		return "", nil
	}

	w := postLogin(s, `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	id, err := s.tokens.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := testServer(t)
	s.Login = func(context.Context, string, string) (string, error) { return "", nil }

	w := postLogin(s, `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginBadRequestAndErrors(t *testing.T) {
	s := testServer(t)
	s.Login = func(context.Context, string, string) (string, error) {
		return "", errors.New("db down")
	}

	require.Equal(t, http.StatusBadRequest, postLogin(s, `not json`).Code)
	require.Equal(t, http.StatusBadRequest, postLogin(s, `{"password":"x"}`).Code)
	require.Equal(t, http.StatusInternalServerError,
		postLogin(s, `{"username":"alice","password":"x"}`).Code)
}

func TestLoginDisabledWithoutResolver(t *testing.T) {
	s := testServer(t)
	w := postLogin(s, `{"username":"alice","password":"x"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}
