// Message event publishing.
//
// The Publisher packages a stored message into the wire event consumed by
// subscribed client sessions. Publication is fire-and-forget: the message
// row is already durable by the time PublishMessage runs, so a transport
// failure (no subscribers, full buffers) is logged and swallowed; it never
// affects the sender's response.
package broadcast

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-direct-chat/internal/channel"
	"github.com/tbourn/go-direct-chat/internal/domain"
)

// EventMessage is the event name carried by every chat message broadcast.
const EventMessage = "chat.messages"

// MessagePayload is the broadcast body for a chat message. The message text
// is plaintext: encryption is at rest only, and the pair channel is already
// access-controlled to the two participants.
type MessagePayload struct {
	ID          uint      `json:"id"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	SenderID    int       `json:"sender_id"`
	Sender      string    `json:"sender"`
	RecipientID int       `json:"recipient_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher emits chat message events on the pair channel derived from the
// message's participants.
type Publisher struct {
	Hub *Hub
}

// NewPublisher constructs a Publisher bound to the given hub.
func NewPublisher(h *Hub) *Publisher { return &Publisher{Hub: h} }

// PublishMessage broadcasts a stored message with its decrypted body and
// the sender's display name. Best effort: drops are logged, not returned.
func (p *Publisher) PublishMessage(m *domain.Message, senderName, plaintext string) {
	name := channel.Name(m.SenderID, m.RecipientID)
	payload := MessagePayload{
		ID:          m.ID,
		Message:     plaintext,
		IsRead:      m.IsRead,
		SenderID:    m.SenderID,
		Sender:      senderName,
		RecipientID: m.RecipientID,
		Timestamp:   m.CreatedAt,
	}

	delivered, dropped := p.Hub.Publish(name, Event{Name: EventMessage, Data: payload})
	if dropped > 0 {
		log.Warn().
			Str("channel", name).
			Uint("message_id", m.ID).
			Int("delivered", delivered).
			Int("dropped", dropped).
			Msg("broadcast dropped for slow subscribers")
	}
}
