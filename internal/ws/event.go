package ws

// Client -> server ops.
const (
	OpIdentify  = "identify"
	OpHeartbeat = "heartbeat"
)

// Server -> client events. Notification payloads reuse the dispatcher's
// event names; everything else on this channel is connection plumbing.
const (
	EventHeartbeatAck = "heartbeat_ack"
)

// Event is the wire envelope in both directions.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// IdentifyData carries the credential for a post-handshake identify. The
// same opaque token the REST API accepts as a bearer credential is valid
// here.
type IdentifyData struct {
	Token string `json:"token"`
}
