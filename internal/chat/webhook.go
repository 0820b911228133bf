package chat

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
)

// Outgoing is one queued reply waiting in a chat's outbox.
type Outgoing struct {
	ChatID   int64     `json:"chat_id"`
	Text     string    `json:"text,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Webhook is a Transport backed by plain HTTP: a chat bridge POSTs updates to
// /update and polls /outbox for replies. It exists so the bot can be driven
// by any chat system without linking a proprietary SDK, and so tests can
// exercise the full command surface over httptest.
type Webhook struct {
	updates chan Update

	mu     sync.Mutex
	outbox map[int64][]Outgoing
	closed bool
}

func NewWebhook() *Webhook {
	return &Webhook{
		updates: make(chan Update, 64),
		outbox:  make(map[int64][]Outgoing),
	}
}

func (w *Webhook) Updates() <-chan Update { return w.updates }

func (w *Webhook) Send(_ context.Context, chatID int64, text string) error {
	w.mu.Lock()
	w.outbox[chatID] = append(w.outbox[chatID], Outgoing{ChatID: chatID, Text: text})
	w.mu.Unlock()
	return nil
}

func (w *Webhook) SendDocument(_ context.Context, chatID int64, doc Document) error {
	w.mu.Lock()
	w.outbox[chatID] = append(w.outbox[chatID], Outgoing{ChatID: chatID, Document: &doc})
	w.mu.Unlock()
	return nil
}

// Drain pops and returns all queued replies for chatID.
func (w *Webhook) Drain(chatID int64) []Outgoing {
	w.mu.Lock()
	out := w.outbox[chatID]
	delete(w.outbox, chatID)
	w.mu.Unlock()
	return out
}

// Close stops accepting updates and closes the update stream.
func (w *Webhook) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.updates)
	}
	w.mu.Unlock()
}

// Handler returns the HTTP surface. Routes are relative; mount it wherever.
//
//	POST /update          JSON Update body
//	GET  /outbox?chat_id= pops queued replies for the chat
func (w *Webhook) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.POST("/update", w.handleUpdate)
	g.GET("/outbox", w.handleOutbox)
	return g
}

func (w *Webhook) handleUpdate(c *gin.Context) {
	var u Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transport closed"})
		return
	}
	select {
	case w.updates <- u:
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	default:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "update queue full"})
	}
}

func (w *Webhook) handleOutbox(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Query("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id required"})
		return
	}
	out := w.Drain(chatID)
	if out == nil {
		out = []Outgoing{}
	}
	c.JSON(http.StatusOK, out)
}
