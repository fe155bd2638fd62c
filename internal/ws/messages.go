package ws

import "encoding/json"

// ──────────────────────────── Request DTOs ─────────────────────────────────

// JoinRequest is the body for "join".
type JoinRequest struct {
	Room    string `json:"room"    validate:"required"`
	Account string `json:"account"`
}

// SignalRequest is the body for "signal". Data is relayed without inspection.
type SignalRequest struct {
	To   string          `json:"to"   validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`
}
