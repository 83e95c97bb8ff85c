package finnhub

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/metrics"
	"sentiment-pulse/src/models"

	"github.com/gorilla/websocket"
)

const (
	StreamSourceName = "finnhub"

	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
	pingPeriod       = 30 * time.Second
	maxFrameSize     = 1 << 20
)

// -----------------------------------------------------------------------------
// StreamSource is the live trade stream. One Start opens one connection and
// subscribes every configured symbol; the connection is not re-dialled here.
// -----------------------------------------------------------------------------

type StreamSource struct {
	wsURL   string
	apiKey  string
	symbols []string
	logger  *logger.Logger
	dialer  *websocket.Dialer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// -----------------------------------------------------------------------------

func NewStreamSource(cfg *models.MConfig, symbols []string, log *logger.Logger) *StreamSource {
	return &StreamSource{
		wsURL:   cfg.Finnhub.WSURL,
		apiKey:  cfg.Finnhub.APIKey,
		symbols: append([]string(nil), symbols...),
		logger:  log,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  handshakeTimeout,
			EnableCompression: true,
		},
	}
}

// -----------------------------------------------------------------------------

func (s *StreamSource) Name() string {
	return StreamSourceName
}

// -----------------------------------------------------------------------------

func (s *StreamSource) endpoint() (string, error) {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return "", helpers.NewValidationError("invalid stream url %q: %v", s.wsURL, err)
	}
	q := u.Query()
	q.Set("token", s.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// -----------------------------------------------------------------------------

// Start dials the stream, sends one subscribe frame per symbol and reports
// OnSourceOpen before any tick is delivered.
func (s *StreamSource) Start(ctx context.Context, sink interfaces.ITickSink, wg *sync.WaitGroup) error {
	if s.apiKey == "" {
		return helpers.NewValidationError("finnhub api key is not configured")
	}
	endpoint, err := s.endpoint()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	// Reserve the slot so a concurrent Start does not dial twice.
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	conn, err := s.open(runCtx, endpoint)
	if err != nil {
		cancel()
		close(done)
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		return err
	}

	s.logger.Info("Connected to live stream, subscribed %d symbols", len(s.symbols))
	sink.OnSourceOpen(StreamSourceName)

	wg.Add(2)
	go s.keepAlive(runCtx, conn, wg)
	go s.readLoop(runCtx, cancel, conn, sink, done, wg)

	return nil
}

// -----------------------------------------------------------------------------

func (s *StreamSource) open(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, helpers.NewUpstreamError(resp.StatusCode, s.wsURL)
		}
		return nil, helpers.NewTransportError("dial live stream", err)
	}
	conn.SetReadLimit(maxFrameSize)

	for _, symbol := range s.symbols {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(SubscribeFrame(symbol)); err != nil {
			conn.Close()
			return nil, helpers.NewTransportError("subscribe "+symbol, err)
		}
	}
	_ = conn.SetWriteDeadline(time.Time{})

	return conn, nil
}

// -----------------------------------------------------------------------------

// keepAlive pings the server and closes the connection once ctx is done,
// which unblocks readLoop.
func (s *StreamSource) keepAlive(ctx context.Context, conn *websocket.Conn, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("Ping failed: %v", err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *StreamSource) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sink interfaces.ITickSink, done chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	var readErr error
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		s.handleFrame(data, sink)
	}

	requested := ctx.Err() != nil
	cancel()

	s.mu.Lock()
	if s.done == done {
		s.cancel, s.done = nil, nil
	}
	s.mu.Unlock()

	if requested {
		sink.OnSourceClosed(StreamSourceName, nil)
	} else {
		sink.OnSourceClosed(StreamSourceName, helpers.NewTransportError("live stream closed", readErr))
	}
	close(done)
}

// -----------------------------------------------------------------------------

func (s *StreamSource) handleFrame(data []byte, sink interfaces.ITickSink) {
	ticks, err := ParseTradeFrame(data)
	switch {
	case errors.Is(err, ErrNotTrade):
		metrics.FramesDropped.WithLabelValues("not_trade").Inc()
		return
	case err != nil:
		metrics.FramesDropped.WithLabelValues("malformed").Inc()
		s.logger.Debug("Dropping frame: %v", err)
		return
	}

	for _, t := range ticks {
		sink.OnIncomingTick(StreamSourceName, t)
	}
}

// -----------------------------------------------------------------------------

// Stop closes the connection and waits for the read loop to exit.
func (s *StreamSource) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
