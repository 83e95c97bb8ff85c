package server

import (
	"encoding/json"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // a command is a verb and a symbol
	sendBuffer     = 256
)

// -----------------------------------------------------------------------------
// Client is one dashboard connection. The hub owns send and closes it when
// the client is dropped.
// -----------------------------------------------------------------------------

type Client struct {
	id   string
	hub  *FastAPIServer
	conn *websocket.Conn
	send chan *models.MFeedMessage
}

func newClient(id string, hub *FastAPIServer, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan *models.MFeedMessage, sendBuffer),
	}
}

// -----------------------------------------------------------------------------
// readPump decodes dashboard commands. It is also the liveness watchdog: a
// missing pong lets the read deadline expire and drops the client.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Client %s read error: %v", c.id, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			c.hub.reply(c, errorMessage(helpers.NewMalformedMessageError("commands must be text frames", nil)))
			continue
		}

		var cmd models.MClientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.hub.reply(c, errorMessage(helpers.NewMalformedMessageError("malformed command", err)))
			continue
		}
		c.hub.HandleClientMessage(c, cmd)
	}
}

// -----------------------------------------------------------------------------
// writePump is the only writer on the connection
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped by the hub, or the server is stopping
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Client %s write error: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
