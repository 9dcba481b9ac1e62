package llm

import "errors"

// Roles a ChatMessage can carry. The browser client says "assistant", Gemini says "model".
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleModel     = "model"
)

var (
	// ErrInvalidMessages is returned when the chat history is not a list of messages.
	ErrInvalidMessages = errors.New("messages must be an array")
	// ErrMissingPrompt is returned when a text prompt is absent or empty.
	ErrMissingPrompt = errors.New("prompt is missing or invalid format")
	// ErrMissingFile is returned when a multipart upload has no file attached.
	ErrMissingFile = errors.New("no file uploaded")
)

// ChatMessage is one turn of a conversation. History lives in the client and
// is resubmitted with every request.
type ChatMessage struct {
	// Role is who sent the message, e.g., "user" or "model".
	Role string `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
}

// Attachment is an uploaded file held in memory for the length of one request.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}
