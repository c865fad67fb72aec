package types

// Message is one entry of the conversation. It is kept loosely typed so any
// field the model API understands passes through; "role" and "content" are
// the conventional keys.
type Message map[string]any

type ChatRequest struct {
	Messages []Message `json:"messages"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Detail []ValidationIssue `json:"detail,omitempty"`
}

// ValidationIssue describes why a request body was rejected. Loc is the path
// to the offending field, e.g. ["body", "messages", 2].
type ValidationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}
