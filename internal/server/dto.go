package server

// MessageRequest is one inbound chat message, already unwrapped from the
// platform envelope by whatever bridges the platform to this API.
type MessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// MessageResponse carries the bot's reply. An empty reply means the bot
// chose silence.
type MessageResponse struct {
	Reply string `json:"reply"`
}
