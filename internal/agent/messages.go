package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"food-analyzer-backend/internal/types"
)

// convertMessages maps loosely-typed request messages onto chat-completion
// messages. Keys other than role, content, name, tool_call_id and tool_calls
// are ignored.
func convertMessages(in []types.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for i, m := range in {
		msg, err := convertMessage(m)
		if err != nil {
			return nil, fmt.Errorf("%w: messages[%d]: %v", ErrInvalidInput, i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func convertMessage(m types.Message) (openai.ChatCompletionMessage, error) {
	var msg openai.ChatCompletionMessage

	role, err := optionalString(m, "role")
	if err != nil {
		return msg, err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = openai.ChatMessageRoleUser
	}
	msg.Role = role

	if msg.Name, err = optionalString(m, "name"); err != nil {
		return msg, err
	}
	if msg.ToolCallID, err = optionalString(m, "tool_call_id"); err != nil {
		return msg, err
	}
	if msg.ToolCalls, err = convertToolCalls(m["tool_calls"]); err != nil {
		return msg, err
	}

	switch c := m["content"].(type) {
	case nil:
	case string:
		msg.Content = c
	case []any:
		parts, err := convertParts(c)
		if err != nil {
			return msg, err
		}
		msg.MultiContent = parts
	default:
		return msg, fmt.Errorf("content must be a string or a list of parts, got %T", c)
	}
	return msg, nil
}

// convertParts accepts both chat-completions parts ("text", "image_url") and
// the responses-style aliases ("input_text", "input_image").
func convertParts(raw []any) ([]openai.ChatMessagePart, error) {
	parts := make([]openai.ChatMessagePart, 0, len(raw))
	for j, r := range raw {
		p, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content[%d] must be an object, got %T", j, r)
		}
		typ, _ := p["type"].(string)
		switch typ {
		case "text", "input_text":
			text, ok := p["text"].(string)
			if !ok {
				return nil, fmt.Errorf("content[%d]: text part requires a string \"text\"", j)
			}
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text})
		case "image_url", "input_image":
			url := imageURL(p["image_url"])
			if url == "" {
				return nil, fmt.Errorf("content[%d]: image part requires \"image_url\"", j)
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
			})
		default:
			return nil, fmt.Errorf("content[%d]: unsupported part type %q", j, typ)
		}
	}
	return parts, nil
}

// convertToolCalls carries an assistant turn's function calls so a replayed
// tool exchange stays well-formed. Arguments may be a JSON string or an object.
func convertToolCalls(v any) ([]openai.ToolCall, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("tool_calls must be a list, got %T", v)
	}
	calls := make([]openai.ToolCall, 0, len(raw))
	for j, r := range raw {
		c, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool_calls[%d] must be an object, got %T", j, r)
		}
		id, _ := c["id"].(string)
		fn, _ := c["function"].(map[string]any)
		name, _ := fn["name"].(string)
		if id == "" || name == "" {
			return nil, fmt.Errorf("tool_calls[%d] requires \"id\" and \"function.name\"", j)
		}
		var args string
		switch a := fn["arguments"].(type) {
		case nil:
		case string:
			args = a
		default:
			b, err := json.Marshal(a)
			if err != nil {
				return nil, fmt.Errorf("tool_calls[%d]: arguments: %w", j, err)
			}
			args = string(b)
		}
		typ, _ := c["type"].(string)
		if typ == "" {
			typ = string(openai.ToolTypeFunction)
		}
		calls = append(calls, openai.ToolCall{
			ID:       id,
			Type:     openai.ToolType(typ),
			Function: openai.FunctionCall{Name: name, Arguments: args},
		})
	}
	return calls, nil
}

// imageURL accepts either {"url": "..."} or a bare string.
func imageURL(v any) string {
	switch u := v.(type) {
	case string:
		return u
	case map[string]any:
		s, _ := u["url"].(string)
		return s
	}
	return ""
}

func optionalString(m types.Message, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}
