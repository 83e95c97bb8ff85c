package server

import (
	"net/http"
	"time"

	"sentiment-pulse/src/feed"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/metrics"
	"sentiment-pulse/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// clientReply is a message addressed to a single client.
type clientReply struct {
	client  *Client
	message *models.MFeedMessage
}

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.clientCount.Store(int64(len(s.clients)))
			metrics.WSClients.Set(float64(len(s.clients)))
			s.Logger.Debug("Client %s connected", client.id)

			// Send the active snapshot on connect
			if initial := s.snapshotMessage(models.MessageInitial, ""); initial != nil {
				client.send <- initial
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case r := <-s.replies:
			if _, ok := s.clients[r.client]; ok {
				select {
				case r.client.send <- r.message:
				default:
				}
			}

		case message := <-s.broadcast:
			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Client too slow, disconnect so the hub never blocks
					s.Logger.Warning("Client %s too slow, disconnecting", client.id)
					s.dropClient(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// dropClient removes a client. Hub goroutine only.
func (s *FastAPIServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.clientCount.Store(int64(len(s.clients)))
	metrics.WSClients.Set(float64(len(s.clients)))
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a message for every client without blocking the caller.
func (s *FastAPIServer) Broadcast(message *models.MFeedMessage) {
	s.stateMutex.Lock()
	s.latestState = message
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- message:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s message", message.Type)
	}
}

// -----------------------------------------------------------------------------

// OnFeedEvent turns aggregator events into dashboard messages. Ticks are
// forwarded only for the active symbol.
func (s *FastAPIServer) OnFeedEvent(ev feed.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	var message *models.MFeedMessage
	switch ev.Kind {
	case feed.EventTick:
		if ev.Symbol != s.feed.ActiveSymbol() {
			return
		}
		message = s.snapshotMessage(models.MessageUpdate, ev.Symbol)
	case feed.EventState, feed.EventSelect:
		message = s.snapshotMessage(models.MessageState, "")
	}
	if message != nil {
		s.Broadcast(message)
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) snapshotMessage(kind, symbol string) *models.MFeedMessage {
	snap, err := s.feed.GetSnapshot(symbol)
	if err != nil {
		s.Logger.Debug("No snapshot for '%s': %v", symbol, err)
		return nil
	}
	return &models.MFeedMessage{
		Type:      kind,
		State:     snap.State,
		Symbol:    snap.Symbol,
		Snapshot:  &snap,
		Timestamp: time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(uuid.NewString(), s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage runs one decoded dashboard command. Failures are
// answered to the sender only.
func (s *FastAPIServer) HandleClientMessage(client *Client, cmd models.MClientCommand) {
	var response *models.MFeedMessage
	switch cmd.Command {
	case models.CommandSelect:
		if err := s.feed.SelectSymbol(cmd.Symbol); err != nil {
			response = errorMessage(err)
		}
		// success is announced to everyone through the STATE broadcast
	case models.CommandSnapshot:
		if _, err := s.feed.GetSnapshot(cmd.Symbol); err != nil {
			response = errorMessage(err)
		} else {
			response = s.snapshotMessage(models.MessageInitial, cmd.Symbol)
		}
	default:
		response = errorMessage(helpers.NewValidationError("unknown command '%s'", cmd.Command))
	}

	if response != nil {
		s.reply(client, response)
	}
}

// -----------------------------------------------------------------------------

// reply queues a message for one client. The hub owns client.send, so
// direct replies go through it.
func (s *FastAPIServer) reply(client *Client, message *models.MFeedMessage) {
	select {
	case s.replies <- clientReply{client: client, message: message}:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------

func errorMessage(err error) *models.MFeedMessage {
	return &models.MFeedMessage{Type: models.MessageError, Error: err.Error(), Timestamp: time.Now().UnixMilli()}
}
