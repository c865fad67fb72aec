package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"food-analyzer-backend/internal/types"
)

// validationError is a well-formed JSON body that does not match ChatRequest.
type validationError struct {
	issues []types.ValidationIssue
}

func (e *validationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %v: %s", e.issues[0].Loc, e.issues[0].Msg)
}

func invalid(msg, typ string, loc ...any) *validationError {
	return &validationError{issues: []types.ValidationIssue{{
		Loc:  append([]any{"body"}, loc...),
		Msg:  msg,
		Type: typ,
	}}}
}

// decodeChatRequest reads a ChatRequest body. A missing or null "messages" and
// any element that is not a JSON object are validation errors; an empty list
// is accepted. maxMessages <= 0 disables the length check.
func decodeChatRequest(body io.Reader, maxMessages int) ([]types.Message, error) {
	var raw struct {
		Messages json.RawMessage `json:"messages"`
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil, invalid("request body is required", "missing")
		case errors.As(err, &typeErr):
			return nil, invalid("request body must be a JSON object", "model_attributes_type")
		}
		return nil, err
	}
	// Anything but EOF after the object is trailing data.
	switch err := dec.Decode(&struct{}{}); {
	case err == nil:
		return nil, errors.New("unexpected data after JSON body")
	case !errors.Is(err, io.EOF):
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw.Messages)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, invalid("Field required", "missing", "messages")
	}
	if trimmed[0] != '[' {
		return nil, invalid("Input should be a valid list", "list_type", "messages")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, err
	}
	if maxMessages > 0 && len(elems) > maxMessages {
		return nil, invalid(fmt.Sprintf("List should have at most %d items, not %d", maxMessages, len(elems)), "too_long", "messages")
	}

	msgs := make([]types.Message, 0, len(elems))
	var issues []types.ValidationIssue
	for i, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			issues = append(issues, types.ValidationIssue{
				Loc:  []any{"body", "messages", i},
				Msg:  "Input should be a valid dictionary",
				Type: "dict_type",
			})
			continue
		}
		var m types.Message
		if err := json.Unmarshal(e, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if len(issues) > 0 {
		return nil, &validationError{issues: issues}
	}
	return msgs, nil
}
