package rtc

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "APIabc123"
	testAPISecret = "secret-for-tests-only"
)

func parseClaims(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		require.IsType(t, &jwt.SigningMethodHMAC{}, token.Method)
		return []byte(testAPISecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestAccessTokenClaims(t *testing.T) {
	signed, err := NewAccessToken(testAPIKey, testAPISecret).
		SetIdentity("user-1").
		SetName("User One").
		SetMetadata(`{"a":1}`).
		SetAttributes(map[string]string{"llm_provider": "openai"}).
		SetTTL(time.Hour).
		AddGrant(VideoGrant{
			Room:                 "room-1",
			RoomJoin:             true,
			CanPublish:           true,
			CanPublishData:       true,
			CanSubscribe:         true,
			CanUpdateOwnMetadata: true,
		}).
		ToJWT()
	require.NoError(t, err)

	claims := parseClaims(t, signed)
	assert.Equal(t, testAPIKey, claims["iss"])
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "user-1", claims["jti"])
	assert.Equal(t, "User One", claims["name"])
	assert.Equal(t, `{"a":1}`, claims["metadata"])

	video, ok := claims["video"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "room-1", video["room"])
	assert.Equal(t, true, video["roomJoin"])
	assert.Equal(t, true, video["canPublish"])
	assert.Equal(t, true, video["canPublishData"])
	assert.Equal(t, true, video["canSubscribe"])
	assert.Equal(t, true, video["canUpdateOwnMetadata"])

	attrs, ok := claims["attributes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "openai", attrs["llm_provider"])

	_, hasRoomConfig := claims["roomConfig"]
	assert.False(t, hasRoomConfig)

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), int64(exp), 5)
}

func TestAccessTokenRoomConfig(t *testing.T) {
	signed, err := NewAccessToken(testAPIKey, testAPISecret).
		SetIdentity("user-2").
		AddGrant(VideoGrant{Room: "r", RoomJoin: true}).
		SetRoomConfig(RoomConfiguration{
			Agents: []RoomAgentDispatch{{AgentName: "bot1", Metadata: `{"user_id": "12345"}`}},
		}).
		ToJWT()
	require.NoError(t, err)

	claims := parseClaims(t, signed)
	roomConfig, ok := claims["roomConfig"].(map[string]interface{})
	require.True(t, ok)
	agents, ok := roomConfig["agents"].([]interface{})
	require.True(t, ok)
	require.Len(t, agents, 1)
	agent, ok := agents[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bot1", agent["agentName"])
	assert.Equal(t, `{"user_id": "12345"}`, agent["metadata"])
}

func TestAccessTokenValidation(t *testing.T) {
	_, err := NewAccessToken("", "").SetIdentity("x").AddGrant(VideoGrant{}).ToJWT()
	assert.Error(t, err)

	_, err = NewAccessToken(testAPIKey, testAPISecret).AddGrant(VideoGrant{}).ToJWT()
	assert.Error(t, err)

	_, err = NewAccessToken(testAPIKey, testAPISecret).SetIdentity("x").ToJWT()
	assert.Error(t, err)
}
