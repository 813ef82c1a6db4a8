package openai

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// sseStream decodes an OpenAI server-sent-events response into normalized
// chunks. Lines outside the "data: " protocol and malformed payloads are
// skipped; the "[DONE]" sentinel or connection EOF terminates the stream.
type sseStream struct {
	providerID string
	response   *http.Response
	reader     *bufio.Reader

	mu     sync.Mutex
	done   bool
	closed bool
}

func newSSEStream(providerID string, response *http.Response) *sseStream {
	return &sseStream{
		providerID: providerID,
		response:   response,
		reader:     bufio.NewReader(response.Body),
	}
}

// Next implements types.ChatCompletionStream
func (s *sseStream) Next() (types.ChatCompletionChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || s.closed {
		return types.ChatCompletionChunk{}, io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.done = true
			if err == io.EOF {
				return types.ChatCompletionChunk{}, io.EOF
			}
			return types.ChatCompletionChunk{}, types.NewNetworkError(s.providerID, "stream read failed").
				WithOriginalErr(err).WithOperation("stream_chat_completion")
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return types.ChatCompletionChunk{}, io.EOF
		}

		var wc wireStreamChunk
		if err := json.Unmarshal([]byte(data), &wc); err != nil {
			continue
		}
		return decodeChunk(wc), nil
	}
}

// Close implements types.ChatCompletionStream
func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.response.Body.Close()
}
