package domain

import (
	"time"
)

// ChatMessage is a relayed chat line, stamped by the server with the
// sender's identity and a timestamp before fan-out.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
