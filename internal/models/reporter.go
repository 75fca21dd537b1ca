package models

import "fmt"

// Reporter identifies the end user who files complaints.
type Reporter struct {
	// ID is the Telegram user id; replies and status pushes go to this chat.
	ID int64 `json:"id"`
	// Handle is the Telegram username without the leading "@". May be empty.
	Handle string `json:"handle,omitempty"`
	// Lang is the language code reported by the client, e.g. "kk" or "en".
	Lang string `json:"lang,omitempty"`
}

// DisplayName returns the handle, or an "ID: <id>" label when the reporter has no username.
func (r Reporter) DisplayName() string {
	if r.Handle != "" {
		return r.Handle
	}
	return fmt.Sprintf("ID: %d", r.ID)
}
