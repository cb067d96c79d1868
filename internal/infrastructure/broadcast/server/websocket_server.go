package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	broadcastredis "teamstream/internal/infrastructure/broadcast/redis"
	"teamstream/internal/infrastructure/monitoring"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the fronting proxy
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config holds broadcaster timings and rate limits.
type Config struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	Burst             int
}

// WebSocketServer is the self-hosted broadcaster: clients connect with a
// bearer token, ask to subscribe to channels, and receive envelopes relayed
// from Redis pub/sub. Every subscribe request is authorized against the
// grant store; the server holds no grant state of its own.
type WebSocketServer struct {
	redis  *redis.Client
	grants ports.GrantStore
	auth   ports.AuthService

	cfg     Config
	metrics *monitoring.Collector
	logger  *zap.SugaredLogger

	mu    sync.RWMutex
	conns map[*connection]struct{}
}

type clientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	Channel string `json:"channel"`
}

type serverAck struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

type connection struct {
	userID  domain.UserID
	ws      *websocket.Conn
	pubsub  *redis.PubSub
	limiter *rate.Limiter

	writeMu sync.Mutex
	cancel  context.CancelFunc
}

func NewWebSocketServer(
	redisClient *redis.Client,
	grants ports.GrantStore,
	auth ports.AuthService,
	cfg Config,
	metrics *monitoring.Collector,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	return &WebSocketServer{
		redis:   redisClient,
		grants:  grants,
		auth:    auth,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		conns:   make(map[*connection]struct{}),
	}
}

// HandleWebSocket authenticates and upgrades an incoming connection.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	conn := &connection{
		userID:  userID,
		ws:      ws,
		pubsub:  s.redis.Subscribe(ctx),
		limiter: rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.Burst),
		cancel:  cancel,
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.metrics.ConnectionOpened()

	s.logger.Infow("broadcaster client connected", "user", userID)

	go s.relayPump(ctx, conn)
	go s.pingPump(ctx, conn)
	s.readPump(ctx, conn)
}

// readPump consumes subscribe/unsubscribe requests until the socket closes.
func (s *WebSocketServer) readPump(ctx context.Context, conn *connection) {
	defer s.teardown(conn)

	conn.ws.SetReadLimit(4096)
	_ = conn.ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		if !conn.limiter.Allow() {
			s.writeJSON(conn, serverAck{OK: false, Error: "rate limit exceeded"})
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.writeJSON(conn, serverAck{OK: false, Error: "malformed message"})
			continue
		}

		switch msg.Action {
		case "subscribe":
			s.handleSubscribe(ctx, conn, domain.Channel(msg.Channel))
		case "unsubscribe":
			_ = conn.pubsub.Unsubscribe(ctx, broadcastredis.PubSubName(msg.Channel))
			s.writeJSON(conn, serverAck{Action: "unsubscribe", Channel: msg.Channel, OK: true})
		default:
			s.writeJSON(conn, serverAck{Action: msg.Action, Channel: msg.Channel, OK: false, Error: "unknown action"})
		}
	}
}

func (s *WebSocketServer) handleSubscribe(ctx context.Context, conn *connection, channel domain.Channel) {
	allowed := channel == domain.UserChannel(conn.userID) // own user channel needs no grant
	if !allowed {
		var err error
		allowed, err = s.grants.Has(ctx, conn.userID, channel)
		if err != nil {
			s.logger.Warnw("grant lookup failed", "user", conn.userID, "channel", channel, "error", err)
			s.writeJSON(conn, serverAck{Action: "subscribe", Channel: channel.String(), OK: false, Error: "authorization unavailable"})
			return
		}
	}

	if !allowed {
		s.metrics.SubscribeRejected()
		s.logger.Infow("subscribe denied", "user", conn.userID, "channel", channel)
		s.writeJSON(conn, serverAck{Action: "subscribe", Channel: channel.String(), OK: false, Error: "access denied"})
		return
	}

	if err := conn.pubsub.Subscribe(ctx, broadcastredis.PubSubName(channel.String())); err != nil {
		s.writeJSON(conn, serverAck{Action: "subscribe", Channel: channel.String(), OK: false, Error: "subscribe failed"})
		return
	}

	s.metrics.SubscribeAccepted()
	s.writeJSON(conn, serverAck{Action: "subscribe", Channel: channel.String(), OK: true})
}

// relayPump forwards Redis pub/sub traffic to the websocket.
func (s *WebSocketServer) relayPump(ctx context.Context, conn *connection) {
	ch := conn.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.writeMu.Lock()
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			err := conn.ws.WriteMessage(websocket.TextMessage, []byte(msg.Payload))
			conn.writeMu.Unlock()
			if err != nil {
				s.logger.Debugw("relay write failed, dropping connection",
					"user", conn.userID,
					"error", err,
				)
				conn.cancel()
				return
			}
		}
	}
}

func (s *WebSocketServer) pingPump(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.writeMu.Lock()
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			err := conn.ws.WriteMessage(websocket.PingMessage, nil)
			conn.writeMu.Unlock()
			if err != nil {
				conn.cancel()
				return
			}
		}
	}
}

func (s *WebSocketServer) writeJSON(conn *connection, v interface{}) {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.ws.WriteJSON(v); err != nil {
		conn.cancel()
	}
}

func (s *WebSocketServer) teardown(conn *connection) {
	conn.cancel()
	_ = conn.pubsub.Close()
	_ = conn.ws.Close()

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.metrics.ConnectionClosed()

	s.logger.Infow("broadcaster client disconnected", "user", conn.userID)
}

// Shutdown closes all live connections.
func (s *WebSocketServer) Shutdown() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.cancel()
		_ = c.ws.Close()
	}
}
