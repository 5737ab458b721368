package bridge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamb-project/lamb-lti/internal/bridge"
)

func TestGetUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/by-email/student@x.edu", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/users/by-email/student@x.edu":
			_ = json.NewEncoder(w).Encode(bridge.User{ID: "u-1", Email: "student@x.edu", Name: "Student", Role: "user"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "test-key")
	u, err := c.GetUserByEmail(context.Background(), "student@x.edu")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "")
	_, err := c.GetUserByEmail(context.Background(), "ghost@x.edu")
	assert.ErrorIs(t, err, bridge.ErrNotFound)
}

func TestCreateUserConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "")
	_, err := c.CreateUser(context.Background(), "student@x.edu", "Student", "pw", "user")
	assert.ErrorIs(t, err, bridge.ErrAlreadyExists)
}

func TestAddUserToGroupAlreadyMemberIsNoop(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"conflict status", http.StatusConflict, ""},
		{"already-member message", http.StatusBadRequest, `{"detail":"user already a member"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			c := bridge.NewClient(srv.URL, "")
			assert.NoError(t, c.AddUserToGroup(context.Background(), "grp-1", "u-1"))
		})
	}
}

func TestCreateGroupReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Essay Coach Group", payload["name"])
		_ = json.NewEncoder(w).Encode(bridge.Group{ID: "grp-9", Name: payload["name"], Owner: payload["owner"]})
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "")
	id, err := c.CreateGroup(context.Background(), "Essay Coach Group", "LTI access group", "prof@x.edu")
	require.NoError(t, err)
	assert.Equal(t, "grp-9", id)
}

func TestGenerateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/u-1/token", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "")
	tok, err := c.GenerateToken(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)
}

func TestUpstreamErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database unavailable"}`))
	}))
	defer srv.Close()

	c := bridge.NewClient(srv.URL, "")
	err := c.CreateModel(context.Background(), bridge.Model{ID: "lamb_assistant.7"})
	var apiErr *bridge.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database unavailable", apiErr.Message)
}
