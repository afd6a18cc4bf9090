package rtc

import (
	"encoding/json"
	"fmt"
	"time"

	"aria/internal/logging"
	"aria/internal/utils/id"
)

// TokenRequest carries the optional fields accepted by the token endpoint.
// Field names match the JSON wire format used by the console.
type TokenRequest struct {
	RoomName        string            `json:"roomName,omitempty"`
	ParticipantName string            `json:"participantName,omitempty"`
	ParticipantID   string            `json:"participantId,omitempty"`
	Metadata        string            `json:"metadata,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	AgentName       string            `json:"agentName,omitempty"`
	Prompt          string            `json:"prompt,omitempty"`
	FirstMessage    string            `json:"firstMessage,omitempty"`
	STTAPIKey       string            `json:"sttApiKey,omitempty"`
	TTSAPIKey       string            `json:"ttsApiKey,omitempty"`
}

// TokenResult is the success payload of the token endpoint.
type TokenResult struct {
	Identity    string `json:"identity"`
	AccessToken string `json:"accessToken"`
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithTokenTTL overrides the validity window of issued tokens.
func WithTokenTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithAgentDispatchMetadata sets the metadata payload attached to agent
// dispatch directives.
func WithAgentDispatchMetadata(metadata string) IssuerOption {
	return func(i *Issuer) {
		i.dispatchMetadata = metadata
	}
}

// WithIssuerLogger sets the issuer's logger.
func WithIssuerLogger(logger logging.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logging.OrNop(logger)
	}
}

// Issuer mints access tokens for session requests.
type Issuer struct {
	apiKey           string
	apiSecret        string
	ttl              time.Duration
	dispatchMetadata string
	logger           logging.Logger
}

// NewIssuer constructs a token issuer. Both credentials must be non-empty;
// the HTTP layer gates on Configured before calling Issue.
func NewIssuer(apiKey, apiSecret string, opts ...IssuerOption) *Issuer {
	issuer := &Issuer{
		apiKey:           apiKey,
		apiSecret:        apiSecret,
		ttl:              defaultTokenTTL,
		dispatchMetadata: `{"user_id": "12345"}`,
		logger:           logging.OrNop(nil),
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// Configured reports whether both issuer credentials are present.
func (i *Issuer) Configured() bool {
	return i != nil && i.apiKey != "" && i.apiSecret != ""
}

// Issue validates the request, fills generated defaults, composes metadata,
// and returns a signed credential. Every field of the request is optional.
func (i *Issuer) Issue(req TokenRequest) (TokenResult, error) {
	roomName := req.RoomName
	if roomName == "" {
		roomName = fmt.Sprintf("room-%s-%s", id.RandomAlphanumeric(4), id.RandomAlphanumeric(4))
	}
	identity := req.ParticipantID
	if identity == "" {
		identity = fmt.Sprintf("identity-%s", id.RandomAlphanumeric(4))
	}
	name := req.ParticipantName
	if name == "" {
		name = identity
	}

	metadata, err := composeMetadata(req)
	if err != nil {
		return TokenResult{}, err
	}

	token := NewAccessToken(i.apiKey, i.apiSecret).
		SetIdentity(identity).
		SetName(name).
		SetMetadata(metadata).
		SetAttributes(req.Attributes).
		SetTTL(i.ttl).
		AddGrant(VideoGrant{
			Room:                 roomName,
			RoomJoin:             true,
			CanPublish:           true,
			CanPublishData:       true,
			CanSubscribe:         true,
			CanUpdateOwnMetadata: true,
		})
	if req.AgentName != "" {
		token.SetRoomConfig(RoomConfiguration{
			Agents: []RoomAgentDispatch{{
				AgentName: req.AgentName,
				Metadata:  i.dispatchMetadata,
			}},
		})
	}

	signed, err := token.ToJWT()
	if err != nil {
		return TokenResult{}, fmt.Errorf("sign token: %w", err)
	}
	i.logger.Debug("Issued token for identity=%s room=%s agent=%q", identity, roomName, req.AgentName)
	return TokenResult{Identity: identity, AccessToken: signed}, nil
}

// composeMetadata merges prompt, first message, and speech API keys into the
// metadata object when any are present; otherwise the metadata string passes
// through unchanged (possibly empty).
func composeMetadata(req TokenRequest) (string, error) {
	if req.Prompt == "" && req.FirstMessage == "" && req.STTAPIKey == "" && req.TTSAPIKey == "" {
		return req.Metadata, nil
	}
	obj := map[string]any{}
	if req.Metadata != "" {
		if err := json.Unmarshal([]byte(req.Metadata), &obj); err != nil {
			return "", fmt.Errorf("parse metadata: %w", err)
		}
	}
	if req.Prompt != "" {
		obj["prompt"] = req.Prompt
	}
	if req.FirstMessage != "" {
		obj["firstMessage"] = req.FirstMessage
	}
	if req.STTAPIKey != "" {
		obj["sttApiKey"] = req.STTAPIKey
	}
	if req.TTSAPIKey != "" {
		obj["ttsApiKey"] = req.TTSAPIKey
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("serialize metadata: %w", err)
	}
	return string(merged), nil
}
