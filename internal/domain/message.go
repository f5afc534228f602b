package domain

import "time"

// Message is a single entry of a conversation.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"createdAt"`
	SideChannel *SideChannel `json:"sideChannel,omitempty"`
}

// SideChannel carries auxiliary data delivered after a reply stream.
type SideChannel struct {
	WebSearchResults []WebResult `json:"webSearchResults,omitempty"`
}

// WebResult is a single normalized web search hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Image   string `json:"image,omitempty"`
}

// ChatMessage is the wire shape of a message sent to the reply endpoint.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ReplyRequest is the body of POST /reply.
type ReplyRequest struct {
	Messages  []ChatMessage `json:"messages"`
	Locale    string        `json:"locale,omitempty"`
	MessageID string        `json:"message_id,omitempty"`
}

// LastUserContent returns the content of the most recent user message.
func (r *ReplyRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// SearchRequest is the body of POST /search and POST /searchGuarded.
type SearchRequest struct {
	Query  string `json:"query"`
	Locale string `json:"locale,omitempty"`
}

// SearchResponse is returned by POST /search.
type SearchResponse struct {
	Results []WebResult `json:"results"`
}

// GuardedSearchResponse is returned by POST /searchGuarded.
type GuardedSearchResponse struct {
	ShouldShowResults bool        `json:"shouldShowResults"`
	Results           []WebResult `json:"results"`
}

// SpeakRequest is the body of POST /speak.
type SpeakRequest struct {
	Text   string `json:"text"`
	Locale string `json:"locale,omitempty"`
}

// SpeakResponse is returned by POST /speak.
// Fallback tells the client to use its local voice instead.
type SpeakResponse struct {
	AudioContent string `json:"audioContent,omitempty"`
	Error        string `json:"error,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
}

// TranscribeResponse is returned by POST /transcribe.
type TranscribeResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
