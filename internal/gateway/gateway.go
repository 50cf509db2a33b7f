// Package gateway exposes the agent over HTTP and WebSocket. It is the
// only transport shipped in-tree; chat front-ends are expected to sit
// behind it as plain clients.
package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/logger"
	"github.com/comigor/bertbot/internal/ratelimit"
	"github.com/comigor/bertbot/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server serves /health, /v1/message and the /ws endpoint.
type Server struct {
	svc      *service.AgentService
	limiter  *ratelimit.Limiter // nil disables rate limiting
	addr     string
	upgrader websocket.Upgrader
}

func New(cfg config.GatewayConfig, svc *service.AgentService, limiter *ratelimit.Limiter) *Server {
	return &Server{
		svc:     svc,
		limiter: limiter,
		addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser front-ends connect from arbitrary origins; auth is
			// the allowlist's job, not the Origin header's.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the route mux. Split out from ListenAndServe so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/message", s.handleMessage)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) ListenAndServe() error {
	logger.L.Info("starting gateway", "address", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// messageRequest is the plain-HTTP adapter contract: channel, user and
// text in, reply out.
type messageRequest struct {
	Channel string `json:"channel"`
	UserID  string `json:"userId"`
	Text    string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	ip := clientIP(r)
	if s.limiter != nil {
		if allowed, retryAfter := s.limiter.CheckMessage(ip); !allowed {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:      fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
				RetryAfter: retryAfter,
			})
			return
		}
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}
	if req.Channel == "" {
		req.Channel = "http"
	}
	if req.UserID == "" {
		req.UserID = ip
	}

	reply, err := s.svc.HandleMessage(r.Context(), service.ChannelMessage{
		Channel:   req.Channel,
		UserID:    req.UserID,
		Text:      req.Text,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.L.Error("message handling failed", "channel", req.Channel, "userId", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process message"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Reply: reply})
}

// wsMessage is an inbound WebSocket frame.
type wsMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId,omitempty"`
	Text   string `json:"text,omitempty"`
}

// wsResponse is an outbound WebSocket frame.
type wsResponse struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if s.limiter != nil && !s.limiter.TrackConnection(ip) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: "Too many connections from your IP. Please try again later.",
		})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warn("websocket upgrade failed", "ip", ip, "error", err)
		if s.limiter != nil {
			s.limiter.ReleaseConnection(ip)
		}
		return
	}

	connectionID := uuid.NewString()
	logger.L.Info("websocket connection established", "connectionId", connectionID, "ip", ip)

	defer func() {
		conn.Close()
		if s.limiter != nil {
			s.limiter.ReleaseConnection(ip)
		}
		logger.L.Info("websocket connection closed", "connectionId", connectionID, "ip", ip)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if s.limiter != nil {
			if allowed, retryAfter := s.limiter.CheckMessage(ip); !allowed {
				s.send(conn, wsResponse{
					Type:       "error",
					Error:      fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
					RetryAfter: retryAfter,
				})
				continue
			}
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(conn, wsResponse{Type: "error", Error: "Invalid message"})
			continue
		}

		switch msg.Type {
		case "ping":
			s.send(conn, wsResponse{Type: "pong", ID: msg.ID})
		case "text":
			userID := msg.UserID
			if userID == "" {
				userID = connectionID
			}
			reply, err := s.svc.HandleMessage(r.Context(), service.ChannelMessage{
				Channel:   "webchat",
				UserID:    userID,
				Text:      msg.Text,
				Timestamp: time.Now(),
			})
			if err != nil {
				logger.L.Error("websocket message handling failed", "connectionId", connectionID, "error", err)
				s.send(conn, wsResponse{Type: "error", ID: msg.ID, Error: "failed to process message"})
				continue
			}
			s.send(conn, wsResponse{Type: "reply", ID: msg.ID, Text: reply})
		default:
			s.send(conn, wsResponse{Type: "error", Error: "Unsupported message"})
		}
	}
}

func (s *Server) send(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		logger.L.Warn("websocket write failed", "error", err)
	}
}

// clientIP resolves the caller address, trusting proxy headers first.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("failed to write response", "error", err)
	}
}
