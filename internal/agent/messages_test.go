package agent

import (
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"food-analyzer-backend/internal/types"
)

func TestConvertMessages(t *testing.T) {
	out, err := convertMessages([]types.Message{
		{"role": "system", "content": "be brief"},
		{"role": "USER", "content": "What's in an apple?", "extra": 42},
		{"content": "no role given"},
		{"role": "tool", "content": "{}", "tool_call_id": "call_1", "name": "lookup"},
	})
	require.NoError(t, err)
	require.Len(t, out, 4)
	require.Equal(t, "system", out[0].Role)
	require.Equal(t, "user", out[1].Role)
	require.Equal(t, "What's in an apple?", out[1].Content)
	require.Equal(t, openai.ChatMessageRoleUser, out[2].Role)
	require.Equal(t, "call_1", out[3].ToolCallID)
	require.Equal(t, "lookup", out[3].Name)
}

func TestConvertMessages_Parts(t *testing.T) {
	out, err := convertMessages([]types.Message{{
		"role": "user",
		"content": []any{
			map[string]any{"type": "text", "text": "How many calories?"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/pizza.jpg"}},
			map[string]any{"type": "input_image", "image_url": "data:image/png;base64,AAAA"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Empty(t, out[0].Content)
	require.Len(t, out[0].MultiContent, 3)
	require.Equal(t, "How many calories?", out[0].MultiContent[0].Text)
	require.Equal(t, "https://example.com/pizza.jpg", out[0].MultiContent[1].ImageURL.URL)
	require.Equal(t, "data:image/png;base64,AAAA", out[0].MultiContent[2].ImageURL.URL)
}

func TestConvertMessages_Rejects(t *testing.T) {
	cases := map[string]types.Message{
		"non-string role":    {"role": true, "content": "x"},
		"numeric content":    {"role": "user", "content": 3.5},
		"part not an object": {"role": "user", "content": []any{"text"}},
		"unknown part type":  {"role": "user", "content": []any{map[string]any{"type": "audio"}}},
		"text part no text":  {"role": "user", "content": []any{map[string]any{"type": "text"}}},
		"image part no url":  {"role": "user", "content": []any{map[string]any{"type": "image_url"}}},
		"tool_calls object":  {"role": "assistant", "tool_calls": map[string]any{"id": "call_1"}},
		"tool call no name":  {"role": "assistant", "tool_calls": []any{map[string]any{"id": "call_1"}}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := convertMessages([]types.Message{m})
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestConvertMessages_ToolCallsReplayed(t *testing.T) {
	out, err := convertMessages([]types.Message{
		{"role": "user", "content": "Calories in a banana?"},
		{"role": "assistant", "content": nil, "tool_calls": []any{
			map[string]any{
				"id":       "call_1",
				"type":     "function",
				"function": map[string]any{"name": "lookup_food", "arguments": `{"item":"banana"}`},
			},
			map[string]any{
				"id":       "call_2",
				"function": map[string]any{"name": "lookup_food", "arguments": map[string]any{"item": "oat"}},
			},
		}},
		{"role": "tool", "tool_call_id": "call_1", "content": `{"kcal":105}`},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)

	calls := out[1].ToolCalls
	require.Len(t, calls, 2)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, openai.ToolTypeFunction, calls[0].Type)
	require.Equal(t, "lookup_food", calls[0].Function.Name)
	require.JSONEq(t, `{"item":"banana"}`, calls[0].Function.Arguments)
	require.Equal(t, openai.ToolTypeFunction, calls[1].Type)
	require.JSONEq(t, `{"item":"oat"}`, calls[1].Function.Arguments)
	require.Equal(t, "call_1", out[2].ToolCallID)
}

func TestFoodAnalyzer(t *testing.T) {
	a := FoodAnalyzer()
	require.Equal(t, "Food Analyzer", a.Name)
	require.Contains(t, a.Instructions, "only about food items")
}

func TestLoadAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Snack Coach\ntemperature: 0.3\nmax_tokens: 256\n"), 0o600))

	a, err := LoadAgent(path)
	require.NoError(t, err)
	require.Equal(t, "Snack Coach", a.Name)
	require.Equal(t, FoodAnalyzer().Instructions, a.Instructions)
	require.NotNil(t, a.Temperature)
	require.InDelta(t, 0.3, *a.Temperature, 1e-6)
	require.Equal(t, 256, a.MaxTokens)
}

func TestLoadAgent_ExplicitZeroTemperature(t *testing.T) {
	dir := t.TempDir()
	zero := filepath.Join(dir, "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("temperature: 0\n"), 0o600))
	a, err := LoadAgent(zero)
	require.NoError(t, err)
	require.NotNil(t, a.Temperature)
	require.NotZero(t, a.requestTemperature())
	require.Less(t, a.requestTemperature(), float32(1e-6))

	unset := filepath.Join(dir, "unset.yaml")
	require.NoError(t, os.WriteFile(unset, []byte("name: Snack Coach\n"), 0o600))
	a, err = LoadAgent(unset)
	require.NoError(t, err)
	require.Nil(t, a.Temperature)
	require.Zero(t, a.requestTemperature())
}

func TestLoadAgent_Errors(t *testing.T) {
	_, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [unterminated"), 0o600))
	_, err = LoadAgent(bad)
	require.Error(t, err)

	hot := filepath.Join(dir, "hot.yaml")
	require.NoError(t, os.WriteFile(hot, []byte("temperature: 3\n"), 0o600))
	_, err = LoadAgent(hot)
	require.Error(t, err)
}
