package xai

// Message roles used in chat completions
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the body of POST /chat/completions
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`

	SearchParameters *SearchParameters `json:"search_parameters,omitempty"`
}

// Live search modes
const (
	SearchModeOff  = "off"
	SearchModeAuto = "auto"
	SearchModeOn   = "on"
)

// Live search source types
const (
	SourceX    = "x"
	SourceWeb  = "web"
	SourceNews = "news"
)

// SearchParameters enables Grok live search for a request. Dates are
// YYYY-MM-DD and bound the publication date of the searched posts.
type SearchParameters struct {
	Mode             string         `json:"mode"`
	Sources          []SearchSource `json:"sources,omitempty"`
	FromDate         string         `json:"from_date,omitempty"`
	ToDate           string         `json:"to_date,omitempty"`
	ReturnCitations  bool           `json:"return_citations,omitempty"`
	MaxSearchResults int            `json:"max_search_results,omitempty"`
}

// SearchSource is one live search source
type SearchSource struct {
	Type    string `json:"type"`
	Country string `json:"country,omitempty"`
}

// Message is one chat turn. Content is either a string or []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL or data URL
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ChatResponse is the subset of the completion response we read
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion candidate
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// APIError is the error envelope returned on non-2xx responses
type APIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Text returns the first choice's content when it is a plain string
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	if s, ok := r.Choices[0].Message.Content.(string); ok {
		return s
	}
	return ""
}
