package history

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat-transcript entry. At least one of Text and ImageURL is
// expected; a message carrying neither is never persisted. Timestamps are
// Unix milliseconds, matching the stored layout.
type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Empty reports whether the message carries no usable content.
func (m Message) Empty() bool {
	return m.Text == "" && m.ImageURL == ""
}

// Conversation is one persisted chat transcript. ID is stable for the
// conversation's lifetime; Title changes only via an explicit rename;
// Timestamp is refreshed on every append.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Timestamp int64     `json:"timestamp"`
}

func cloneConversation(c Conversation) Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

func cloneConversations(list []Conversation) []Conversation {
	out := make([]Conversation, len(list))
	for i, c := range list {
		out[i] = cloneConversation(c)
	}
	return out
}
