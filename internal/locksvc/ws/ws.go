package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/comm"
	"github.com/openlock/access-services/internal/locksvc/service"
)

// client wraps a websocket connection with a write lock; the NATS callback
// and the AI reader goroutine both fan messages out concurrently.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks the two websocket populations: dashboard clients receiving the
// notification fan-out, and AI worker connections streaming recognition
// results in and receiving registration commands.
type Hub struct {
	connMap sync.Map // dashboard socketId -> *client
	aiMap   sync.Map // AI worker socketId -> *client

	Access *service.AccessService
}

func NewHub() *Hub {
	return &Hub{}
}

// Notify broadcasts one outcome to every dashboard client. It satisfies
// service.Notifier. A failed write only drops that client's frame; the
// decision pipeline never waits on a subscriber.
func (h *Hub) Notify(msgType string, payload interface{}) {
	msg, err := envelope(msgType, payload)
	if err != nil {
		log.Errorf("Error building %s notification: %s", msgType, err)
		return
	}

	h.connMap.Range(func(key, value interface{}) bool {
		if err := value.(*client).writeJSON(msg); err != nil {
			log.Errorf("Error writing %s to dashboard socket %s: %s", msgType, key, err)
		}
		return true
	})
}

// SendToAI broadcasts a command to every connected AI worker, e.g. arming a
// face registration run.
func (h *Hub) SendToAI(msgType string, payload interface{}) {
	msg, err := envelope(msgType, payload)
	if err != nil {
		log.Errorf("Error building %s command: %s", msgType, err)
		return
	}

	h.aiMap.Range(func(key, value interface{}) bool {
		if err := value.(*client).writeJSON(msg); err != nil {
			log.Errorf("Error writing %s to AI socket %s: %s", msgType, key, err)
		}
		return true
	})
}

func envelope(msgType string, payload interface{}) (*comm.WSMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &comm.WSMessage{Type: msgType, Data: data}, nil
}

// AIMessage dispatches one frame from an AI worker connection.
func (h *Hub) AIMessage(socketId string, msg *comm.WSMessage) {
	switch msg.Type {
	case "recognize-embedding":
		rpt := comm.EmbeddingReport{}
		if err := json.Unmarshal(msg.Data, &rpt); err != nil {
			log.Errorf("Error: malformed recognize-embedding payload %s", err)
			return
		}
		h.Access.HandleEmbedding(rpt)
	case "register-progress":
		rpt := comm.RegisterProgress{}
		if err := json.Unmarshal(msg.Data, &rpt); err != nil {
			log.Errorf("Error: malformed register-progress payload %s", err)
			return
		}
		h.Access.HandleRegisterProgress(rpt)
	case "register-result":
		rpt := comm.RegisterResult{}
		if err := json.Unmarshal(msg.Data, &rpt); err != nil {
			log.Errorf("Error: malformed register-result payload %s", err)
			return
		}
		h.Access.HandleFaceRegisterResult(rpt)
	default:
		log.Warnf("unknown AI event received: %s", msg.Type)
	}
}

// SocketMessage handles a frame from a dashboard client. The dashboard is a
// read-mostly surface; commands go through the HTTP API.
func (h *Hub) SocketMessage(socketId string, msg *comm.WSMessage) {
	log.Warnf("unexpected dashboard event received: %s", msg.Type)
}

func (h *Hub) StoreConnection(socketId string, conn *websocket.Conn) {
	h.connMap.Store(socketId, &client{conn: conn})
}

func (h *Hub) StoreAIConnection(socketId string, conn *websocket.Conn) {
	h.aiMap.Store(socketId, &client{conn: conn})
}

func (h *Hub) HandleDisconnect(socketId string) {
	h.connMap.Delete(socketId)
	h.aiMap.Delete(socketId)
}
