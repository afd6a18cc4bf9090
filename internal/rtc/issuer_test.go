package rtc

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerConfigured(t *testing.T) {
	assert.True(t, NewIssuer(testAPIKey, testAPISecret).Configured())
	assert.False(t, NewIssuer("", testAPISecret).Configured())
	assert.False(t, NewIssuer(testAPIKey, "").Configured())

	var nilIssuer *Issuer
	assert.False(t, nilIssuer.Configured())
}

func TestIssueEmptyRequestGeneratesDefaults(t *testing.T) {
	issuer := NewIssuer(testAPIKey, testAPISecret)

	result, err := issuer.Issue(TokenRequest{})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^identity-[a-zA-Z0-9]{4}$`), result.Identity)
	require.NotEmpty(t, result.AccessToken)

	claims := parseClaims(t, result.AccessToken)
	assert.Equal(t, result.Identity, claims["sub"])
	assert.Equal(t, result.Identity, claims["name"])

	video, ok := claims["video"].(map[string]interface{})
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^room-[a-zA-Z0-9]{4}-[a-zA-Z0-9]{4}$`), video["room"])
	assert.Equal(t, true, video["roomJoin"])

	_, hasRoomConfig := claims["roomConfig"]
	assert.False(t, hasRoomConfig)
	_, hasMetadata := claims["metadata"]
	assert.False(t, hasMetadata)
}

func TestIssueExplicitFields(t *testing.T) {
	issuer := NewIssuer(testAPIKey, testAPISecret, WithTokenTTL(30*time.Minute))

	result, err := issuer.Issue(TokenRequest{
		RoomName:        "my-room",
		ParticipantName: "Alice",
		ParticipantID:   "alice-1",
		Attributes:      map[string]string{"llm_provider": "groq"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice-1", result.Identity)

	claims := parseClaims(t, result.AccessToken)
	assert.Equal(t, "alice-1", claims["sub"])
	assert.Equal(t, "Alice", claims["name"])

	video := claims["video"].(map[string]interface{})
	assert.Equal(t, "my-room", video["room"])

	attrs, ok := claims["attributes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "groq", attrs["llm_provider"])

	exp := claims["exp"].(float64)
	assert.InDelta(t, time.Now().Add(30*time.Minute).Unix(), int64(exp), 5)
}

func TestIssueAgentDispatch(t *testing.T) {
	issuer := NewIssuer(testAPIKey, testAPISecret,
		WithAgentDispatchMetadata(`{"user_id": "999"}`))

	result, err := issuer.Issue(TokenRequest{AgentName: "voice-bot"})
	require.NoError(t, err)

	claims := parseClaims(t, result.AccessToken)
	roomConfig, ok := claims["roomConfig"].(map[string]interface{})
	require.True(t, ok)
	agents := roomConfig["agents"].([]interface{})
	require.Len(t, agents, 1)
	agent := agents[0].(map[string]interface{})
	assert.Equal(t, "voice-bot", agent["agentName"])
	assert.Equal(t, `{"user_id": "999"}`, agent["metadata"])
}

func TestIssueMetadataComposition(t *testing.T) {
	issuer := NewIssuer(testAPIKey, testAPISecret)

	t.Run("passthrough without session fields", func(t *testing.T) {
		result, err := issuer.Issue(TokenRequest{Metadata: "not even json"})
		require.NoError(t, err)
		claims := parseClaims(t, result.AccessToken)
		assert.Equal(t, "not even json", claims["metadata"])
	})

	t.Run("merges session fields into metadata object", func(t *testing.T) {
		result, err := issuer.Issue(TokenRequest{
			Metadata:     `{"a":1}`,
			Prompt:       "hi",
			FirstMessage: "hello there",
			STTAPIKey:    "stt-key",
			TTSAPIKey:    "tts-key",
		})
		require.NoError(t, err)

		claims := parseClaims(t, result.AccessToken)
		raw, ok := claims["metadata"].(string)
		require.True(t, ok)

		var merged map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &merged))
		assert.Equal(t, float64(1), merged["a"])
		assert.Equal(t, "hi", merged["prompt"])
		assert.Equal(t, "hello there", merged["firstMessage"])
		assert.Equal(t, "stt-key", merged["sttApiKey"])
		assert.Equal(t, "tts-key", merged["ttsApiKey"])
	})

	t.Run("prompt alone builds a fresh object", func(t *testing.T) {
		result, err := issuer.Issue(TokenRequest{Prompt: "solo"})
		require.NoError(t, err)

		claims := parseClaims(t, result.AccessToken)
		var merged map[string]any
		require.NoError(t, json.Unmarshal([]byte(claims["metadata"].(string)), &merged))
		assert.Equal(t, map[string]any{"prompt": "solo"}, merged)
	})

	t.Run("invalid metadata with session fields fails", func(t *testing.T) {
		_, err := issuer.Issue(TokenRequest{Metadata: "not json", Prompt: "hi"})
		assert.Error(t, err)
	})
}
