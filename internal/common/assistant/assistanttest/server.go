// Package assistanttest provides an in-memory assistant service for tests.
package assistanttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"vm-pathways/internal/common/assistant"
	"vm-pathways/internal/models"
)

// Operations the fake server distinguishes.
const (
	OpCreateThread  = "create_thread"
	OpCreateMessage = "create_message"
	OpCreateRun     = "create_run"
	OpGetRun        = "get_run"
	OpListMessages  = "list_messages"
)

const (
	ThreadID = "thread_test"
	RunID    = "run_test"
)

// Server answers the threads/runs endpoints from canned state.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	failures map[string]int
	statuses []models.RunStatus
	reply    string
	content  []openai.MessageContent
	noReply  bool
	empty    map[string]bool
	calls    map[string]int
	prompts  []string
	headers  []http.Header
}

// NewServer starts a server whose runs complete on the first poll and reply with a
// fixed recommendation. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		failures: make(map[string]int),
		statuses: []models.RunStatus{models.RunStatusCompleted},
		reply:    `I recommend "Valley Relief Balm" for joint pain. Find it at https://valleymedicinals.com/products/relief-balm`,
		calls:    make(map[string]int),
		empty:    make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Fail makes every call to op answer with status.
func (s *Server) Fail(op string, status int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = status
	return s
}

// WithStatuses sets the run status returned by successive polls. The last one repeats.
func (s *Server) WithStatuses(statuses ...models.RunStatus) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = statuses
	return s
}

// WithReply sets the assistant message text.
func (s *Server) WithReply(text string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = text
	s.content = nil
	s.noReply = false
	return s
}

// WithContent replaces the assistant message content parts, for replies that are not
// plain text.
func (s *Server) WithContent(parts ...openai.MessageContent) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = parts
	s.noReply = false
	return s
}

// EmptyAck makes op answer 200 with no body.
func (s *Server) EmptyAck(op string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.empty[op] = true
	return s
}

// WithoutReply leaves only the user message in the transcript.
func (s *Server) WithoutReply() *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noReply = true
	return s
}

// Calls returns how many requests op received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Prompts returns the user message bodies submitted so far.
func (s *Server) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Headers returns the headers of every request received.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

// Config returns client settings pointing at the server.
func (s *Server) Config() assistant.Config {
	return assistant.Config{
		BaseURL: s.URL + "/v1",
		APIKey:  "sk-test",
		Timeout: 5 * time.Second,
	}
}

// Client returns a client pointed at the server.
func (s *Server) Client() *openai.Client {
	return assistant.NewClient(s.Config())
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	op, ok := route(r.Method, strings.TrimPrefix(r.URL.Path, "/v1"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.calls[op]++
	s.headers = append(s.headers, r.Header.Clone())
	status, fail := s.failures[op]
	empty := s.empty[op]
	poll := s.calls[OpGetRun]
	s.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"message":"injected %s failure"}}`, op)
		return
	}
	// create_message still records the prompt before acknowledging
	if empty && op != OpCreateMessage {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch op {
	case OpCreateThread:
		writeJSON(w, openai.Thread{ID: ThreadID, Object: "thread"})
	case OpCreateMessage:
		var body struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.prompts = append(s.prompts, body.Content)
		s.mu.Unlock()
		if empty {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, openai.Message{ID: "msg_user", ThreadID: ThreadID, Role: body.Role})
	case OpCreateRun:
		writeJSON(w, openai.Run{ID: RunID, ThreadID: ThreadID, Status: openai.RunStatusQueued})
	case OpGetRun:
		writeJSON(w, openai.Run{ID: RunID, ThreadID: ThreadID, Status: openai.RunStatus(s.statusFor(poll))})
	case OpListMessages:
		writeJSON(w, openai.MessagesList{Object: "list", Messages: s.transcript()})
	}
}

func (s *Server) statusFor(poll int) models.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return models.RunStatusCompleted
	}
	if poll > len(s.statuses) {
		return s.statuses[len(s.statuses)-1]
	}
	return s.statuses[poll-1]
}

// transcript lists messages newest first, the way the provider does by default.
func (s *Server) transcript() []openai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msgs []openai.Message
	switch {
	case s.noReply:
	case s.content != nil:
		msgs = append(msgs, openai.Message{ID: "msg_assistant", ThreadID: ThreadID, Role: assistant.RoleAssistant, Content: s.content})
	default:
		msgs = append(msgs, textMessage("msg_assistant", assistant.RoleAssistant, s.reply))
	}
	for i := len(s.prompts) - 1; i >= 0; i-- {
		msgs = append(msgs, textMessage(fmt.Sprintf("msg_user_%d", i), assistant.RoleUser, s.prompts[i]))
	}
	return msgs
}

func textMessage(id, role, text string) openai.Message {
	return openai.Message{
		ID:       id,
		ThreadID: ThreadID,
		Role:     role,
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: text}},
		},
	}
}

func route(method, path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case method == http.MethodPost && len(parts) == 1 && parts[0] == "threads":
		return OpCreateThread, true
	case method == http.MethodPost && len(parts) == 3 && parts[2] == "messages":
		return OpCreateMessage, true
	case method == http.MethodPost && len(parts) == 3 && parts[2] == "runs":
		return OpCreateRun, true
	case method == http.MethodGet && len(parts) == 4 && parts[2] == "runs":
		return OpGetRun, true
	case method == http.MethodGet && len(parts) == 3 && parts[2] == "messages":
		return OpListMessages, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
