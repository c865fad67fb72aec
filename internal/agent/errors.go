package agent

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrInvalidInput means a message could not be mapped onto the model API.
	ErrInvalidInput = errors.New("agent: invalid input")
	// ErrEmptyResponse means the provider answered without any choices.
	ErrEmptyResponse = errors.New("agent: provider returned no choices")
)

// UpstreamStatus reports the HTTP status the model provider answered with, if
// err carries one.
func UpstreamStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
