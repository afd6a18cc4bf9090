package rtc

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 6 * time.Hour

// VideoGrant enumerates room capabilities embedded in an access token.
type VideoGrant struct {
	Room                 string `json:"room,omitempty"`
	RoomJoin             bool   `json:"roomJoin,omitempty"`
	CanPublish           bool   `json:"canPublish,omitempty"`
	CanPublishData       bool   `json:"canPublishData,omitempty"`
	CanSubscribe         bool   `json:"canSubscribe,omitempty"`
	CanUpdateOwnMetadata bool   `json:"canUpdateOwnMetadata,omitempty"`
}

// RoomAgentDispatch instructs the backend to start a named agent in the room.
type RoomAgentDispatch struct {
	AgentName string `json:"agentName"`
	Metadata  string `json:"metadata,omitempty"`
}

// RoomConfiguration is embedded in a token to configure the joined room.
type RoomConfiguration struct {
	Agents []RoomAgentDispatch `json:"agents,omitempty"`
}

// AccessToken builds a signed credential for one participant session.
type AccessToken struct {
	apiKey     string
	apiSecret  string
	identity   string
	name       string
	metadata   string
	attributes map[string]string
	grant      *VideoGrant
	roomConfig *RoomConfiguration
	ttl        time.Duration
}

// NewAccessToken creates a token builder bound to the issuer credentials.
func NewAccessToken(apiKey, apiSecret string) *AccessToken {
	return &AccessToken{apiKey: apiKey, apiSecret: apiSecret, ttl: defaultTokenTTL}
}

// SetIdentity sets the participant identity (JWT subject).
func (t *AccessToken) SetIdentity(identity string) *AccessToken {
	t.identity = identity
	return t
}

// SetName sets the participant display name.
func (t *AccessToken) SetName(name string) *AccessToken {
	t.name = name
	return t
}

// SetMetadata attaches participant metadata to the token.
func (t *AccessToken) SetMetadata(metadata string) *AccessToken {
	t.metadata = metadata
	return t
}

// SetAttributes attaches the initial participant attribute mapping.
func (t *AccessToken) SetAttributes(attributes map[string]string) *AccessToken {
	t.attributes = attributes
	return t
}

// AddGrant sets the capability grant embedded in the token.
func (t *AccessToken) AddGrant(grant VideoGrant) *AccessToken {
	t.grant = &grant
	return t
}

// SetRoomConfig embeds a room configuration (agent dispatch) in the token.
func (t *AccessToken) SetRoomConfig(cfg RoomConfiguration) *AccessToken {
	t.roomConfig = &cfg
	return t
}

// SetTTL overrides the token validity window.
func (t *AccessToken) SetTTL(ttl time.Duration) *AccessToken {
	if ttl > 0 {
		t.ttl = ttl
	}
	return t
}

// ToJWT signs the token with HS256 and returns the compact serialization.
func (t *AccessToken) ToJWT() (string, error) {
	if t.apiKey == "" || t.apiSecret == "" {
		return "", errors.New("issuer credentials not configured")
	}
	if t.identity == "" {
		return "", errors.New("token identity required")
	}
	if t.grant == nil {
		return "", errors.New("token grant required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.apiKey,
		"sub":   t.identity,
		"jti":   t.identity,
		"nbf":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
		"video": t.grant,
	}
	if t.name != "" {
		claims["name"] = t.name
	}
	if t.metadata != "" {
		claims["metadata"] = t.metadata
	}
	if len(t.attributes) > 0 {
		claims["attributes"] = t.attributes
	}
	if t.roomConfig != nil {
		claims["roomConfig"] = t.roomConfig
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.apiSecret))
}
