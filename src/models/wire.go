package models

// -----------------------------------------------------------------------------
// Finnhub stream frames
// -----------------------------------------------------------------------------

type MSubscribeMessage struct {
	Type   string `json:"type"` // "subscribe"
	Symbol string `json:"symbol"`
}

type MTradeData struct {
	Price     float64 `json:"p"`
	Symbol    string  `json:"s"`
	Timestamp int64   `json:"t"`
	Volume    float64 `json:"v"`
}

type MTradeMessage struct {
	Type string       `json:"type"`
	Data []MTradeData `json:"data"`
}

// -----------------------------------------------------------------------------
// Dashboard websocket frames
// -----------------------------------------------------------------------------

const (
	MessageInitial = "INITIAL"
	MessageUpdate  = "UPDATE"
	MessageState   = "STATE"
	MessageError   = "ERROR"
)

type MFeedMessage struct {
	Type      string     `json:"type"`
	State     FeedState  `json:"state"`
	Symbol    string     `json:"symbol,omitempty"`
	Snapshot  *MSnapshot `json:"snapshot,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// Dashboard client commands
const (
	CommandSelect   = "select"
	CommandSnapshot = "snapshot"
)

type MClientCommand struct {
	Command string `json:"command"` // CommandSelect or CommandSnapshot
	Symbol  string `json:"symbol"`
}
