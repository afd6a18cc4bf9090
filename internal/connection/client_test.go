package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria/internal/rtc"
)

func TestTokenClientFetch(t *testing.T) {
	var received rtc.TokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(rtc.TokenResult{Identity: "id-1", AccessToken: "jwt-1"})
	}))
	defer server.Close()

	client := NewTokenClient(server.URL, nil)
	result, err := client.Fetch(context.Background(), rtc.TokenRequest{RoomName: "r1", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", result.Identity)
	assert.Equal(t, "jwt-1", result.AccessToken)
	assert.Equal(t, "r1", received.RoomName)
	assert.Equal(t, "hi", received.Prompt)
}

func TestTokenClientFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewTokenClient(server.URL, nil)
	_, err := client.Fetch(context.Background(), rtc.TokenRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token API error: 403")
	assert.Contains(t, err.Error(), "nope")
}

func TestTokenClientFetchEmptyCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rtc.TokenResult{Identity: "id-1"})
	}))
	defer server.Close()

	client := NewTokenClient(server.URL, nil)
	_, err := client.Fetch(context.Background(), rtc.TokenRequest{})
	assert.Error(t, err)
}

func TestTokenClientFetchUnreachable(t *testing.T) {
	client := NewTokenClient("http://127.0.0.1:1/api/token", nil)
	_, err := client.Fetch(context.Background(), rtc.TokenRequest{})
	assert.Error(t, err)
}

func TestHostedClientGenerateToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pk-1", r.Header.Get("Authorization"))
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "pk-1", payload["projectKey"])
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "jwt-hosted"})
	}))
	defer server.Close()

	client := NewHostedClient(HostedConfig{
		URL:        server.URL,
		ServerURL:  "wss://hosted.example",
		ProjectKey: "pk-1",
	}, nil)
	require.NotNil(t, client)
	assert.Equal(t, "wss://hosted.example", client.ServerURL())

	token, err := client.GenerateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-hosted", token)
}

func TestHostedClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "role too low", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewHostedClient(HostedConfig{URL: server.URL, ProjectKey: "pk"}, nil)
	_, err := client.GenerateToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestHostedClientNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewHostedClient(HostedConfig{}, nil))
}
