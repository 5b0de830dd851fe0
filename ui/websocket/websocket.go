package websocket

import (
	"context"
	"encoding/json"

	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/AzielCF/az-wabridge/infrastructure/valkey"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"
)

const (
	CodeNewPost   = "NEW_POST"
	CodeFetchPost = "FETCH_POSTS"
	CodeListPosts = "LIST_POSTS"

	broadcastBuffer = 256
)

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

// PostFeedItem is what clients receive for each post. Attachment content is
// never pushed over the socket; clients fetch it through the REST API.
type PostFeedItem struct {
	ThreadID    string            `json:"thread_id"`
	ThreadName  string            `json:"thread_name"`
	ExternalKey string            `json:"external_key,omitempty"`
	Post        domainThread.Post `json:"post"`
}

type directMessage struct {
	conn    *websocket.Conn
	message BroadcastMessage
}

type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan BroadcastMessage
	direct     chan directMessage
	done       chan struct{}

	vkClient *valkey.Client
	channel  string
	localID  string
}

// NewHub builds the post feed hub. vk may be nil, in which case posts only
// reach clients connected to this process.
func NewHub(vk *valkey.Client, serverID string) *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan BroadcastMessage, broadcastBuffer),
		direct:     make(chan directMessage, broadcastBuffer),
		done:       make(chan struct{}),
		vkClient:   vk,
		localID:    serverID,
	}
	if vk != nil {
		h.channel = vk.Key("ws", "posts")
	}
	return h
}

// NotifyPost queues a post for every connected client. It never blocks the
// caller; when the queue is full the update is dropped.
func (h *Hub) NotifyPost(t domainThread.Thread, p domainThread.Post) {
	msg := BroadcastMessage{
		Code:     CodeNewPost,
		Message:  "New post",
		ThreadID: t.ID,
		Result:   feedItem(t, p),
	}
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warnf("[WS] broadcast queue full, dropping post %s", p.ID)
	}
}

func feedItem(t domainThread.Thread, p domainThread.Post) PostFeedItem {
	return PostFeedItem{
		ThreadID:    t.ID,
		ThreadName:  t.Name,
		ExternalKey: t.ExternalKey,
		Post:        withoutContent(p),
	}
}

func withoutContent(p domainThread.Post) domainThread.Post {
	if len(p.Attachments) == 0 {
		return p
	}
	stripped := make([]domainThread.Attachment, len(p.Attachments))
	for i, a := range p.Attachments {
		a.ContentBase64 = ""
		stripped[i] = a
	}
	p.Attachments = stripped
	return p
}

// Run owns every socket write. It returns when ctx is done; connection
// handlers stop waiting on the hub from then on.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.vkClient != nil {
		h.startValkeySubscriber(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return

		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			logrus.Debug("[WS] Connection registered")

		case conn := <-h.unregister:
			delete(h.clients, conn)
			logrus.Debug("[WS] Connection unregistered")

		case d := <-h.direct:
			if _, ok := h.clients[d.conn]; ok {
				h.write(d.conn, d.message)
			}

		case message := <-h.broadcast:
			if message.SenderID == "" {
				h.publishToValkey(ctx, message)
			}
			h.broadcastToLocal(message)
		}
	}
}

// join, leave and reply hand work to Run and give up once it has stopped.
func (h *Hub) join(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) reply(conn *websocket.Conn, message BroadcastMessage) {
	select {
	case h.direct <- directMessage{conn: conn, message: message}:
	case <-h.done:
	}
}

func (h *Hub) broadcastToLocal(message BroadcastMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, message BroadcastMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.Errorf("[WS] Write error: %v", err)
		h.closeConnection(conn)
	}
}

func (h *Hub) closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

func (h *Hub) publishToValkey(ctx context.Context, message BroadcastMessage) {
	if h.vkClient == nil {
		return
	}
	message.SenderID = h.localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	inner := h.vkClient.Inner()
	if err := inner.Do(ctx, inner.B().Publish().Channel(h.channel).Message(string(data)).Build()).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) startValkeySubscriber(ctx context.Context) {
	logrus.Infof("[WS] Subscribing to %s for posts from other bridge processes", h.channel)
	go func() {
		inner := h.vkClient.Inner()
		err := inner.Receive(ctx, inner.B().Subscribe().Channel(h.channel).Build(), func(msg valkeylib.PubSubMessage) {
			var remote BroadcastMessage
			if err := json.Unmarshal([]byte(msg.Message), &remote); err != nil {
				return
			}
			// Our own publications come back through the subscription.
			if remote.SenderID == h.localID {
				return
			}
			select {
			case h.broadcast <- remote:
			default:
				logrus.Warn("[WS] broadcast queue full, dropping remote post")
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

type clientRequest struct {
	Code     string `json:"code"`
	ThreadID string `json:"thread_id"`
	Limit    int    `json:"limit"`
}

// RegisterRoutes mounts GET /ws. Clients may send
// {"code":"FETCH_POSTS","thread_id":"..."} to receive recent posts.
func RegisterRoutes(app fiber.Router, h *Hub, threads domainThread.IThreadUsecase) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		if !h.join(conn) {
			_ = conn.Close()
			return
		}
		defer func() {
			h.leave(conn)
			_ = conn.Close()
		}()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				logrus.Debugf("[WS] unsupported message type: %d", messageType)
				continue
			}

			var request clientRequest
			if err := json.Unmarshal(message, &request); err != nil {
				logrus.Debugf("[WS] unmarshal error: %v", err)
				continue
			}
			if request.Code == CodeFetchPost {
				h.reply(conn, fetchPosts(threads, request))
			}
		}
	}))
}

func fetchPosts(threads domainThread.IThreadUsecase, request clientRequest) BroadcastMessage {
	limit := request.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	posts, err := threads.ListPosts(context.Background(), request.ThreadID, limit)
	if err != nil {
		return BroadcastMessage{Code: CodeListPosts, Message: err.Error(), ThreadID: request.ThreadID}
	}
	for i := range posts {
		posts[i] = withoutContent(posts[i])
	}
	return BroadcastMessage{Code: CodeListPosts, Message: "Posts found", ThreadID: request.ThreadID, Result: posts}
}
