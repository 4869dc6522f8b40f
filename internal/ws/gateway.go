package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/auth"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/chat"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
)

const maxEventSize = 4096

// PresenceMarker records user online state as connections come and go.
type PresenceMarker interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
}

// Gateway upgrades authenticated websocket connections and drives their
// event loop. Authentication happens during the handshake: a missing,
// invalid, or expired credential, or an unverified user, rejects the
// connection before any room state exists.
type Gateway struct {
	hub        *Hub
	authn      *auth.Middleware
	service    *chat.Service
	presence   PresenceMarker
	bufferSize int
	log        *slog.Logger
	upgrader   websocket.Upgrader
}

func NewGateway(hub *Hub, authn *auth.Middleware, service *chat.Service, presence PresenceMarker, bufferSize int, log *slog.Logger) *Gateway {
	return &Gateway{
		hub:        hub,
		authn:      authn,
		service:    service,
		presence:   presence,
		bufferSize: bufferSize,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles the connect handshake and runs the session until the
// socket closes.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := credentialFromRequest(r)
	if token == "" {
		g.rejectHandshake(w, apperr.Authentication("no token provided"))
		return
	}
	user, err := g.authn.Resolve(r.Context(), token)
	if err != nil {
		g.rejectHandshake(w, err)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(user.ID, conn, g.bufferSize)
	g.hub.Register(client)
	client.Start()

	if g.presence != nil {
		if err := g.presence.MarkOnline(r.Context(), user.ID); err != nil {
			g.log.Warn("failed to mark user online", "user_id", user.ID, "error", err)
		}
	}

	g.readLoop(client)
}

func (g *Gateway) readLoop(c *Client) {
	// Disconnect leaves no partial state: room membership is discarded and
	// presence cleared when the user's last connection goes.
	defer func() {
		lastForUser := g.hub.Unregister(c)
		if lastForUser && g.presence != nil {
			if err := g.presence.MarkOffline(context.Background(), c.UserID); err != nil {
				g.log.Warn("failed to mark user offline", "user_id", c.UserID, "error", err)
			}
		}
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxEventSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Warn("websocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			g.sendError(c, apperr.Validation("malformed event"))
			continue
		}
		g.handleEvent(c, event)
	}
}

func (g *Gateway) handleEvent(c *Client, event models.Event) {
	ctx := context.Background()

	switch event.Type {
	case models.EventJoinConversation:
		var payload models.RoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.ConversationID == "" {
			g.sendError(c, apperr.Validation("conversationId is required"))
			return
		}
		// Joining a room is gated on participant membership; non-members
		// get an error event and no room mutation.
		if err := g.service.IsParticipant(ctx, payload.ConversationID, c.UserID); err != nil {
			g.sendError(c, err)
			return
		}
		g.hub.Join(payload.ConversationID, c)
		g.log.Debug("joined conversation room", "user_id", c.UserID, "conversation_id", payload.ConversationID)

	case models.EventLeaveConversation:
		var payload models.RoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.ConversationID == "" {
			g.sendError(c, apperr.Validation("conversationId is required"))
			return
		}
		g.hub.Leave(payload.ConversationID, c)

	case models.EventTyping:
		var payload models.TypingPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.ConversationID == "" {
			g.sendError(c, apperr.Validation("conversationId is required"))
			return
		}
		// Transient presence: relayed to the room, never persisted.
		relay, err := models.NewEvent(models.EventUserTyping, models.UserTypingPayload{
			UserID:         c.UserID,
			ConversationID: payload.ConversationID,
			IsTyping:       payload.IsTyping,
		})
		if err != nil {
			g.log.Error("failed to encode typing relay", "error", err)
			return
		}
		data, err := json.Marshal(relay)
		if err != nil {
			g.log.Error("failed to encode typing relay", "error", err)
			return
		}
		g.hub.BroadcastExcept(payload.ConversationID, c.ID, data)

	default:
		g.log.Debug("ignoring unknown event", "type", event.Type, "user_id", c.UserID)
	}
}

func (g *Gateway) sendError(c *Client, err error) {
	event, encErr := models.NewEvent(models.EventError, models.ErrorPayload{
		Code:    string(apperr.CodeOf(err)),
		Message: apperr.MessageOf(err),
	})
	if encErr != nil {
		g.log.Error("failed to encode error event", "error", encErr)
		return
	}
	data, encErr := json.Marshal(event)
	if encErr != nil {
		g.log.Error("failed to encode error event", "error", encErr)
		return
	}
	if sendErr := c.Send(data); sendErr != nil {
		g.log.Debug("failed to deliver error event", "user_id", c.UserID, "error", sendErr)
	}
}

func (g *Gateway) rejectHandshake(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}

// credentialFromRequest accepts the token either as a Bearer header or a
// token query parameter; browser websocket clients cannot set headers.
func credentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
