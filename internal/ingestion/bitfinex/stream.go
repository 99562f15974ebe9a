package bitfinex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/observability"
)

// DefaultWSURL is the public websocket API endpoint.
const DefaultWSURL = "wss://api-pub.bitfinex.com/ws/2"

// StreamConfig configures websocket behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages. Bitfinex sends a
	// heartbeat every 15s on idle channels.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the observation channel.
	Buffer int
}

// DefaultStreamConfig returns default websocket configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1024,
	}
}

// FundingTickerStream subscribes to funding ticker channels and emits the
// flash return rate of each update as a RateObservation.
type FundingTickerStream struct {
	endpoint string
	config   StreamConfig
	now      func() time.Time
	metrics  *observability.Metrics
	logger   zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// channels maps channel ID to currency for the current connection
	channels map[int64]string

	done chan struct{}
	wg   sync.WaitGroup
}

// StreamOption configures FundingTickerStream.
type StreamOption func(*FundingTickerStream)

// WithClock sets the clock used to stamp observations.
func WithClock(now func() time.Time) StreamOption {
	return func(s *FundingTickerStream) {
		s.now = now
	}
}

// WithStreamMetrics records message counts.
func WithStreamMetrics(m *observability.Metrics) StreamOption {
	return func(s *FundingTickerStream) {
		s.metrics = m
	}
}

// WithLogger sets the stream logger.
func WithLogger(l zerolog.Logger) StreamOption {
	return func(s *FundingTickerStream) {
		s.logger = l
	}
}

// NewFundingTickerStream creates an unconnected stream.
func NewFundingTickerStream(endpoint string, config *StreamConfig, opts ...StreamOption) *FundingTickerStream {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultStreamConfig().PingInterval
	}
	s := &FundingTickerStream{
		endpoint: endpoint,
		config:   cfg,
		now:      time.Now,
		logger:   zerolog.Nop(),
		channels: make(map[int64]string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type subscribeRequest struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

type eventMessage struct {
	Event    string `json:"event"`
	Channel  string `json:"channel"`
	ChanID   int64  `json:"chanId"`
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
	Code     int    `json:"code"`
	Msg      string `json:"msg"`
}

// Subscribe connects, subscribes to the funding ticker of each currency and
// returns the observation channel. The channel is closed when ctx is done or
// Close is called. Lost connections are re-established with exponential
// backoff and the subscriptions renewed.
func (s *FundingTickerStream) Subscribe(ctx context.Context, currencies []string) (<-chan *domain.RateObservation, error) {
	if len(currencies) == 0 {
		return nil, fmt.Errorf("%w: no currencies to subscribe", domain.ErrInvalidArgument)
	}
	if s.closed.Load() {
		return nil, fmt.Errorf("stream closed")
	}
	if err := s.connect(ctx, currencies); err != nil {
		return nil, err
	}

	out := make(chan *domain.RateObservation, s.config.Buffer)

	s.wg.Add(2)
	go s.readLoop(ctx, currencies, out)
	go s.pingLoop(ctx)

	return out, nil
}

// Close closes the websocket connection and waits for the read loop.
func (s *FundingTickerStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// connect dials and sends one subscribe request per currency.
func (s *FundingTickerStream) connect(ctx context.Context, currencies []string) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	for _, c := range currencies {
		req := subscribeRequest{Event: "subscribe", Channel: "ticker", Symbol: "f" + strings.ToUpper(c)}
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(req); err != nil {
			conn.Close()
			return fmt.Errorf("write subscribe: %w", err)
		}
	}

	s.connMu.Lock()
	s.conn = conn
	s.channels = make(map[int64]string)
	s.connMu.Unlock()
	return nil
}

func (s *FundingTickerStream) currentConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// readLoop reads messages and reconnects on read errors until shutdown.
func (s *FundingTickerStream) readLoop(ctx context.Context, currencies []string, out chan<- *domain.RateObservation) {
	defer s.wg.Done()
	defer close(out)

	// Unblock ReadMessage on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if c := s.currentConn(); c != nil {
				c.Close()
			}
		case <-s.done:
		case <-stop:
		}
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.ReconnectDelay
	b.MaxInterval = s.config.MaxReconnectDelay
	b.MaxElapsedTime = 0

	for {
		conn := s.currentConn()
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err == nil {
			b.Reset()
			if !s.handleMessage(ctx, message, out) {
				return
			}
			continue
		}

		if s.closed.Load() || ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Msg("funding stream read failed, reconnecting")
		s.metrics.RecordIngestionError("stream", "disconnect")
		conn.Close()

		if !s.reconnect(ctx, currencies, b) {
			return
		}
	}
}

// reconnect retries connect until it succeeds or the stream shuts down.
func (s *FundingTickerStream) reconnect(ctx context.Context, currencies []string, b backoff.BackOff) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-s.done:
			return false
		case <-time.After(b.NextBackOff()):
		}

		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := s.connect(dialCtx, currencies)
		cancel()
		if err == nil {
			s.logger.Info().Strs("currencies", currencies).Msg("funding stream reconnected")
			return true
		}
		s.logger.Warn().Err(err).Msg("funding stream reconnect failed")
	}
}

// handleMessage dispatches one frame. It returns false when the consumer
// is gone.
func (s *FundingTickerStream) handleMessage(ctx context.Context, message []byte, out chan<- *domain.RateObservation) bool {
	message = bytes.TrimSpace(message)
	if len(message) == 0 {
		return true
	}

	if message[0] == '{' {
		s.metrics.RecordStreamMessage("event")
		var ev eventMessage
		if err := json.Unmarshal(message, &ev); err != nil {
			s.logger.Debug().Err(err).Msg("undecodable event")
			return true
		}
		switch ev.Event {
		case "subscribed":
			if ev.Channel == "ticker" {
				s.connMu.Lock()
				s.channels[ev.ChanID] = strings.TrimPrefix(ev.Symbol, "f")
				s.connMu.Unlock()
			}
		case "error":
			s.logger.Warn().Int("code", ev.Code).Str("msg", ev.Msg).Msg("funding stream error event")
		}
		return true
	}

	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 2 {
		return true
	}
	var chanID int64
	if err := json.Unmarshal(frame[0], &chanID); err != nil {
		return true
	}
	if string(frame[1]) == `"hb"` {
		s.metrics.RecordStreamMessage("heartbeat")
		return true
	}

	s.connMu.Lock()
	currency, ok := s.channels[chanID]
	s.connMu.Unlock()
	if !ok {
		return true
	}

	// [FRR, BID, BID_PERIOD, BID_SIZE, ASK, ASK_PERIOD, ASK_SIZE, ...]
	var fields []float64
	if err := json.Unmarshal(frame[1], &fields); err != nil || len(fields) == 0 {
		return true
	}
	s.metrics.RecordStreamMessage("ticker")

	obs, err := domain.NewRateObservation(currency, s.now().Unix(), fields[0])
	if err != nil {
		s.logger.Debug().Err(err).Str("currency", currency).Msg("skipping funding ticker")
		return true
	}

	select {
	case out <- obs:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// pingLoop sends ping frames to keep the connection alive.
func (s *FundingTickerStream) pingLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if c := s.currentConn(); c != nil {
				c.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			}
		}
	}
}
