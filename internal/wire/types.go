package wire

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/dexpulse/tradefeed/internal/model"
)

// Message types. Every wire message is a JSON object with a "type"
// discriminator. Outbound queries additionally carry a client-generated "id";
// backends that understand it echo it back, legacy backends ignore it and
// responses are correlated by family instead.
const (
	// Outbound
	TypeAuth            = "auth"
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypeGetHistory      = "getHistory"
	TypeGetLatest       = "getLatest"
	TypeGetGlobalTrades = "getGlobalTrades"
	TypePing            = "ping"
	TypePong            = "pong"

	// Inbound
	TypeEvent           = "event"
	TypeError           = "error"
	TypeHistory         = "history"
	TypeLatest          = "latest"
	TypeGlobalTrades    = "globalTrades"
	TypeSubscribed      = "subscribed"
	TypeConnection      = "connection"
	TypeUnauthenticated = "unauthenticated"
	TypeAuthenticated   = "authenticated" // legacy auth success
)

// Envelope is the minimal shape extracted from every inbound message.
type Envelope struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ExtractType peeks at a raw message without a full parse of the payload.
func ExtractType(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// NewCallID generates a correlation ID for an outbound query.
func NewCallID() string {
	return uuid.NewString()
}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// AuthRequest carries a signed challenge.
type AuthRequest struct {
	Type      string `json:"type"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// SubscribeRequest subscribes to push events for a set of pools.
type SubscribeRequest struct {
	Type  string   `json:"type"`
	Pools []string `json:"pools"`
}

// UnsubscribeRequest removes pool subscriptions.
type UnsubscribeRequest struct {
	Type  string   `json:"type"`
	Pools []string `json:"pools"`
}

// HistoryRequest asks for past events within a time window.
type HistoryRequest struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Pools     []string `json:"pools"`
	StartTime int64    `json:"startTime,omitempty"`
	EndTime   int64    `json:"endTime,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// LatestRequest asks for the most recent events.
type LatestRequest struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// GlobalTradesRequest asks for recent trades across all pools.
type GlobalTradesRequest struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Ping is the liveness probe. The same shape serves as the Pong reply.
type Ping struct {
	Type string `json:"type"`
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

// AuthResponse reports the outcome of an authentication attempt.
type AuthResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// EventMessage wraps an unsolicited push event.
type EventMessage struct {
	Type string                `json:"type"`
	Data model.BlockchainEvent `json:"data"`
}

// ErrorMessage is a server-reported error.
type ErrorMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// HistoryResponse answers a HistoryRequest.
type HistoryResponse struct {
	Type   string                  `json:"type"`
	ID     string                  `json:"id,omitempty"`
	Events []model.BlockchainEvent `json:"events"`
	Count  int                     `json:"count"`
}

// LatestResponse answers a LatestRequest.
type LatestResponse struct {
	Type   string                  `json:"type"`
	ID     string                  `json:"id,omitempty"`
	Events []model.BlockchainEvent `json:"events"`
	Count  int                     `json:"count"`
}

// GlobalTradesResponse answers a GlobalTradesRequest.
type GlobalTradesResponse struct {
	Type   string              `json:"type"`
	ID     string              `json:"id,omitempty"`
	Trades []model.GlobalTrade `json:"trades"`
	Count  int                 `json:"count"`
}

// ConnectionMessage is the server's greeting after the socket opens.
type ConnectionMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ClientID string `json:"clientId,omitempty"`
}
