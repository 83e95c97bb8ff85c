package finnhub

import (
	"encoding/json"
	"errors"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/models"
)

const (
	frameTrade     = "trade"
	frameSubscribe = "subscribe"
)

// ErrNotTrade marks a well-formed frame of another type (ping, error, news).
var ErrNotTrade = errors.New("frame is not a trade")

// -----------------------------------------------------------------------------

// SubscribeFrame builds the outbound subscription for one symbol.
func SubscribeFrame(symbol string) models.MSubscribeMessage {
	return models.MSubscribeMessage{Type: frameSubscribe, Symbol: symbol}
}

// -----------------------------------------------------------------------------

// ParseTradeFrame decodes an inbound frame into ticks. Entries without a
// symbol or with a non-positive price are skipped.
func ParseTradeFrame(data []byte) ([]models.MTick, error) {
	var msg models.MTradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, helpers.NewMalformedMessageError("decode stream frame", err)
	}
	if msg.Type != frameTrade {
		return nil, ErrNotTrade
	}

	ticks := make([]models.MTick, 0, len(msg.Data))
	for _, d := range msg.Data {
		if d.Symbol == "" || d.Price <= 0 {
			continue
		}
		ticks = append(ticks, models.MTick{
			Price:     d.Price,
			Symbol:    d.Symbol,
			Timestamp: d.Timestamp,
			Volume:    d.Volume,
		})
	}
	return ticks, nil
}
