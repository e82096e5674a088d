package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsRequest asks for one tool call. ID is echoed in the response.
type wsRequest struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	s := &toolSession{conn: conn, registry: h.registry, log: h.log}
	if claims := GetClaims(r.Context()); claims != nil {
		s.log = &logger.Logger{SugaredLogger: h.log.With("subject", claims.Subject)}
	}
	s.run(r)
}

type toolSession struct {
	conn     *websocket.Conn
	registry *tools.Registry
	log      *logger.Logger
}

// run serves calls one at a time until the peer goes away.
func (s *toolSession) run(r *http.Request) {
	defer s.conn.Close()
	ctx := r.Context()

	for {
		_, msgBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warnw("websocket read failed", "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msgBytes, &req); err != nil || req.Tool == "" {
			s.send(toolResponse{ID: req.ID, Text: "❌ Invalid message format"})
			continue
		}

		res, err := s.registry.Execute(ctx, req.Tool, req.Arguments)
		if err != nil {
			s.send(toolResponse{ID: req.ID, Text: "❌ " + err.Error()})
			continue
		}
		out := newToolResponse(res)
		out.ID = req.ID
		s.send(out)
	}
}

func (s *toolSession) send(resp toolResponse) {
	if err := s.conn.WriteJSON(resp); err != nil {
		s.log.Warnw("websocket write failed", "error", err)
	}
}
