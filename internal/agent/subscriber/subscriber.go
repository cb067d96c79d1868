package subscriber

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/pkg/cache"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// Handler receives each envelope delivered over the live subscription.
// Delivery is at-least-once; the subscriber deduplicates on request ID
// before calling the handler, so handlers see each logical mutation once.
type Handler func(env *domain.Envelope)

type clientMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type serverAck struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Config holds dial and retry settings for the broadcaster connection.
type Config struct {
	URL          string
	Token        string
	WriteTimeout time.Duration
	RetryMin     time.Duration
	RetryMax     time.Duration
	DedupeWindow time.Duration
}

func DefaultConfig(url, token string) Config {
	return Config{
		URL:          url,
		Token:        token,
		WriteTimeout: 10 * time.Second,
		RetryMin:     time.Second,
		RetryMax:     30 * time.Second,
		DedupeWindow: 5 * time.Minute,
	}
}

// Subscriber maintains a websocket connection to the broadcaster,
// re-dialing with backoff when it drops and re-subscribing the desired
// channel set on each successful connect.
type Subscriber struct {
	cfg     Config
	handler Handler
	seen    *cache.Cache
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	channels map[string]struct{}
	conn     *websocket.Conn
	writeMu  sync.Mutex

	// OnConnect runs after each successful (re)connect, once the desired
	// channels have been re-subscribed. Agents hook their resync here.
	OnConnect func()
}

func New(cfg Config, handler Handler, log *zap.SugaredLogger) *Subscriber {
	return &Subscriber{
		cfg:      cfg,
		handler:  handler,
		seen:     cache.New(cfg.DedupeWindow),
		logger:   log,
		channels: make(map[string]struct{}),
	}
}

// Subscribe adds a channel to the desired set and, if connected, sends the
// subscribe request immediately.
func (s *Subscriber) Subscribe(channel domain.Channel) error {
	s.mu.Lock()
	s.channels[channel.String()] = struct{}{}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil // sent on next connect
	}
	return s.send(conn, clientMessage{Action: "subscribe", Channel: channel.String()})
}

// Unsubscribe removes a channel from the desired set.
func (s *Subscriber) Unsubscribe(channel domain.Channel) error {
	s.mu.Lock()
	delete(s.channels, channel.String())
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.send(conn, clientMessage{Action: "unsubscribe", Channel: channel.String()})
}

// Run dials and re-dials the broadcaster until the context is cancelled.
// Call it in its own goroutine.
func (s *Subscriber) Run(ctx context.Context) {
	boff := &backoff.Backoff{
		Min:    s.cfg.RetryMin,
		Max:    s.cfg.RetryMax,
		Factor: 2,
		Jitter: true,
	}

	for {
		select {
		case <-ctx.Done():
			s.seen.Stop()
			return
		default:
		}

		err := s.dialOnce(ctx)
		if err == nil {
			boff.Reset()
			continue
		}

		wait := boff.Duration()
		s.logger.Warnw("broadcaster connection lost", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			s.seen.Stop()
			return
		case <-time.After(wait):
		}
	}
}

// dialOnce connects, re-subscribes the desired channels and reads until the
// connection drops or the context is cancelled.
func (s *Subscriber) dialOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL+"?token="+s.cfg.Token, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	desired := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		desired = append(desired, ch)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	for _, ch := range desired {
		if err := s.send(conn, clientMessage{Action: "subscribe", Channel: ch}); err != nil {
			return err
		}
	}

	s.logger.Infow("broadcaster connected", "channels", len(desired))
	if s.OnConnect != nil {
		s.OnConnect()
	}

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound frame: acks are logged, envelopes are deduped
// and handed to the handler.
func (s *Subscriber) dispatch(data []byte) {
	var ack serverAck
	if err := json.Unmarshal(data, &ack); err == nil && ack.Action != "" {
		if !ack.OK {
			s.logger.Warnw("subscribe rejected", "channel", ack.Channel, "reason", ack.Error)
		}
		return
	}

	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Debugw("dropping undecodable frame", "error", err)
		return
	}

	if env.RequestID != "" {
		key := env.RequestID + "|" + env.Channel
		if _, dup := s.seen.Get(key); dup {
			return
		}
		s.seen.Set(key, struct{}{})
	}

	s.handler(&env)
}

func (s *Subscriber) send(conn *websocket.Conn, msg clientMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteJSON(msg)
}
