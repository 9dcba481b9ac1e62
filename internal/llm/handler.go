package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxUploadMemory is how much of a multipart form is kept in memory before spilling to disk.
const DefaultMaxUploadMemory = 32 << 20

const (
	defaultDocumentPrompt = "Summarize the following document:"
	defaultAudioPrompt    = "Transcribe the following audio:"

	invalidPromptMessage = "Prompt is missing or invalid format."
)

// Handler is the http api layer for the gateway.
type Handler struct {
	service   Service
	maxMemory int64
}

// NewHandler creates a new handler injecting the service. maxMemory bounds the
// in-memory part of multipart uploads; zero or less means DefaultMaxUploadMemory.
func NewHandler(s Service, maxMemory int64) *Handler {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxUploadMemory
	}
	return &Handler{
		service:   s,
		maxMemory: maxMemory,
	}
}

// RegisterRoutes attaches the gateway endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.handleChat)
	r.Post("/generate-text", h.handleGenerateText)

	// File uploads
	r.Post("/generate-from-image", h.handleUpload("image", ""))
	r.Post("/generate-from-document", h.handleUpload("document", defaultDocumentPrompt))
	r.Post("/generate-from-audio", h.handleUpload("audio", defaultAudioPrompt))
}

// --- DTOs ---

// chatRequest keeps messages raw so a non-array value can be told apart from bad JSON.
type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

type generateTextRequest struct {
	Prompt json.RawMessage `json:"prompt"`
}

// generateResponse is what every successful route sends back.
type generateResponse struct {
	Result string `json:"result"`
}

// --- Handlers ---

// handleChat relays a full conversation history and returns the next reply.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	messages, err := parseMessages(req.Messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := h.service.Chat(r.Context(), messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Result: result})
}

// handleGenerateText answers a single text prompt.
func (h *Handler) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	var req generateTextRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var prompt string
	if len(req.Prompt) == 0 || json.Unmarshal(req.Prompt, &prompt) != nil || prompt == "" {
		writeError(w, http.StatusBadRequest, invalidPromptMessage)
		return
	}

	result, err := h.service.GenerateText(r.Context(), prompt)
	if err != nil {
		if errors.Is(err, ErrMissingPrompt) {
			writeError(w, http.StatusBadRequest, invalidPromptMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Result: result})
}

// handleUpload builds a handler for a multipart route carrying one file in
// field and an optional "prompt" value.
func (h *Handler) handleUpload(field, defaultPrompt string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(h.maxMemory)
		if r.MultipartForm != nil {
			// Drop any temp files the form spilled to disk.
			defer r.MultipartForm.RemoveAll()
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		file, err := readAttachment(r, field)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		prompt := r.FormValue("prompt")
		if prompt == "" {
			prompt = defaultPrompt
		}

		result, err := h.service.GenerateFromFile(r.Context(), prompt, file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, generateResponse{Result: result})
	}
}

// decodeBody decodes a JSON body into v. An empty body decodes as an empty object.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseMessages accepts only a JSON array of message objects.
func parseMessages(raw json.RawMessage) ([]*ChatMessage, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, ErrInvalidMessages
	}
	var messages []*ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, ErrInvalidMessages
	}
	return messages, nil
}

// readAttachment reads the uploaded file in field fully into memory.
func readAttachment(r *http.Request, field string) (*Attachment, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, field)
		}
		return nil, fmt.Errorf("could not read %s upload: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s upload: %w", field, err)
	}

	return &Attachment{
		Filename: header.Filename,
		MIMEType: detectMIMEType(header.Header.Get("Content-Type"), data),
		Data:     data,
	}, nil
}

// detectMIMEType trusts the declared type unless it is missing or generic.
func detectMIMEType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return detected
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for sending a standardized json error.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
