package ws

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

// TopicAllApplications carries every status change; per-application topics
// are built with ApplicationTopic.
const TopicAllApplications = "applications"

func ApplicationTopic(applicationID int64) string {
	return "application:" + strconv.FormatInt(applicationID, 10)
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

type subscribeMessage struct {
	Action        string `json:"action"`
	Channel       string `json:"channel"`
	ApplicationID int64  `json:"applicationId"`
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	websocket.Handler(func(conn *websocket.Conn) {
		sub := NewSubscriber(conn)
		go h.writer(sub)
		h.reader(sub)
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) reader(sub *Subscriber) {
	defer func() {
		h.hub.UnsubscribeAll(sub)
		sub.closeOut()
		_ = sub.conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(sub.conn, &raw); err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(msg.Action)) != "subscribe" {
			continue
		}
		topic := subscriptionTopic(msg)
		if topic == "" {
			continue
		}
		h.hub.Subscribe(topic, sub)
	}
}

func (h *Handler) writer(sub *Subscriber) {
	for payload := range sub.out {
		if err := websocket.Message.Send(sub.conn, string(payload)); err != nil {
			return
		}
	}
}

func subscriptionTopic(msg subscribeMessage) string {
	switch strings.ToLower(strings.TrimSpace(msg.Channel)) {
	case "applications":
		return TopicAllApplications
	case "application":
		if msg.ApplicationID <= 0 {
			return ""
		}
		return ApplicationTopic(msg.ApplicationID)
	default:
		return ""
	}
}
