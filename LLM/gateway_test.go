package LLM

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer returns a test server whose handler produces the given
// reply sequence, one per request. After the sequence is exhausted the
// last entry repeats. An empty reply means a 500 response.
func fakeChatServer(t *testing.T, replies ...string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := calls
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		calls++

		reply := replies[idx]
		if reply == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testGateway(server *httptest.Server) *Gateway {
	client := NewChatClient("test-token")
	client.BaseURL = server.URL
	gw := NewGateway(client, nil)
	gw.MaxRetries = 2
	gw.RetryDelay = time.Millisecond
	return gw
}

func TestCompleteReturnsReply(t *testing.T) {
	server, calls := fakeChatServer(t, "hello there")
	gw := testGateway(server)

	reply, err := gw.Complete(1, MethodTask, "say hello", CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, 1, *calls)
}

func TestCompleteRetriesTransportFailures(t *testing.T) {
	server, calls := fakeChatServer(t, "", "", "recovered")
	gw := testGateway(server)

	reply, err := gw.Complete(1, MethodTask, "prompt", CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, 3, *calls)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	server, calls := fakeChatServer(t, "")
	gw := testGateway(server)

	_, err := gw.Complete(1, MethodTask, "prompt", CompletionOptions{})
	require.Error(t, err)
	// MaxRetries=2 means 3 attempts total
	assert.Equal(t, 3, *calls)
}

func TestCompleteJSONParsesFencedReply(t *testing.T) {
	server, _ := fakeChatServer(t, "```json\n{\"total\": 88}\n```")
	gw := testGateway(server)

	got := gw.CompleteJSON(1, MethodReport, "review", CompletionOptions{}, map[string]interface{}{"total": 0.0})
	assert.Equal(t, 88.0, got["total"])
}

func TestCompleteJSONRetriesOnParseFailure(t *testing.T) {
	server, calls := fakeChatServer(t, "not json at all", `{"total": 75}`)
	gw := testGateway(server)

	got := gw.CompleteJSON(1, MethodReport, "review", CompletionOptions{}, map[string]interface{}{"total": 0.0})
	assert.Equal(t, 75.0, got["total"])
	assert.Equal(t, 2, *calls)
}

func TestCompleteJSONFallsBack(t *testing.T) {
	server, _ := fakeChatServer(t, "still not json")
	gw := testGateway(server)

	fallback := map[string]interface{}{"total": 60.0}
	got := gw.CompleteJSON(1, MethodReport, "review", CompletionOptions{}, fallback)
	assert.Equal(t, 60.0, got["total"])
}

func TestCompleteNumber(t *testing.T) {
	server, _ := fakeChatServer(t, "The estimate is 72.5")
	gw := testGateway(server)

	got := gw.CompleteNumber(1, MethodTask, "estimate", CompletionOptions{}, 10)
	assert.Equal(t, 72.5, got)
}

func TestCompleteNumberFallsBack(t *testing.T) {
	server, _ := fakeChatServer(t, "cannot say")
	gw := testGateway(server)

	got := gw.CompleteNumber(1, MethodTask, "estimate", CompletionOptions{}, 33)
	assert.Equal(t, 33.0, got)
}

func TestChatClientSendsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer server.Close()

	client := NewChatClient("secret")
	client.BaseURL = server.URL
	_, err := client.Complete("ping", CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}
