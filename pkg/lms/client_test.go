package lms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAccountSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/accounts", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var account Account
		require.NoError(t, json.NewDecoder(r.Body).Decode(&account))
		require.Equal(t, "ada@example.com", account.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"lms-42"}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "secret")
	id, err := client.CreateAccount(context.Background(), Account{Email: "ada@example.com", StudentNumber: "S1"})
	require.NoError(t, err)
	require.Equal(t, "lms-42", id)
}

func TestCreateAccountSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate", http.StatusConflict)
	}))
	defer server.Close()

	_, err := New(server.URL, "").CreateAccount(context.Background(), Account{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestUnconfiguredClient(t *testing.T) {
	client := New("", "")
	require.False(t, client.Configured())
	_, err := client.CreateAccount(context.Background(), Account{})
	require.ErrorIs(t, err, ErrNotConfigured)
}
