package models

// MediaType is the kind of attachment accepted as evidence.
type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaVoice    MediaType = "voice"
	MediaDocument MediaType = "document"
)

// Media references an attachment already uploaded to the chat transport.
type Media struct {
	Type   MediaType `json:"type"`
	FileID string    `json:"file_id"`
	// ChatID and MessageID locate the original message so it can be copied.
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Button is one keyboard button. Data is empty for reply-keyboard buttons.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
}

// Keyboard describes the markup attached to a reply.
type Keyboard struct {
	// Inline selects an inline keyboard (callback buttons) instead of a reply keyboard.
	Inline bool       `json:"inline"`
	Rows   [][]Button `json:"rows,omitempty"`
	// Remove hides a previously shown reply keyboard.
	Remove bool `json:"remove,omitempty"`
}

// Reply is an outbound message produced by the dialog or the admin console.
type Reply struct {
	ChatID   int64     `json:"chat_id"`
	Text     string    `json:"text"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
	// VideoFileID sends a video with Text as its caption instead of a text message.
	VideoFileID string `json:"video_file_id,omitempty"`
	// EditMessageID edits an existing message instead of sending a new one.
	EditMessageID int `json:"edit_message_id,omitempty"`
	// QuoteMessageID replies to the given message.
	QuoteMessageID int `json:"quote_message_id,omitempty"`
}

// Callback is a pressed inline button together with the message that carried it.
type Callback struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	Data      string `json:"data"`
	// MessageText is the plain text of the message the button belongs to.
	MessageText string `json:"message_text,omitempty"`
}

// Response is everything produced for one inbound event.
type Response struct {
	Replies []Reply `json:"replies,omitempty"`
	// Answer acknowledges a callback; Alert shows it as a modal instead of a toast.
	Answer string `json:"answer,omitempty"`
	Alert  bool   `json:"alert,omitempty"`
}

// Add appends replies and returns the response for chaining.
func (r Response) Add(replies ...Reply) Response {
	r.Replies = append(r.Replies, replies...)
	return r
}
