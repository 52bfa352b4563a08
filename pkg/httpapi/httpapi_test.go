package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdrain/agentdrain/pkg/lifecycle"
	"github.com/agentdrain/agentdrain/pkg/store/memstore"
)

// sseFrame is one parsed "event: ...\ndata: ...\n\n" block.
type sseFrame struct {
	event string
	data  string
}

func readSSE(t *testing.T, resp *http.Response) []sseFrame {
	t.Helper()
	var frames []sseFrame
	scanner := bufio.NewScanner(resp.Body)
	var cur sseFrame
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.event != "" {
				frames = append(frames, cur)
				cur = sseFrame{}
			}
		}
	}
	return frames
}

func newTestServer(t *testing.T) (*httptest.Server, *lifecycle.Controller) {
	t.Helper()
	controller := lifecycle.New()
	store := memstore.New()
	router := NewRouter(Options{
		Controller: controller,
		Store:      store,
		Steps:      2,
		StepDelay:  0,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, controller
}

func TestHTTPAPI_HappyPathStreamsSessionAndDone(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(`{"query":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames := readSSE(t, resp)
	require.NotEmpty(t, frames)
	assert.Equal(t, "session", frames[0].event)
	assert.Equal(t, "done", frames[len(frames)-1].event)

	var session map[string]string
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &session))
	assert.NotEmpty(t, session["sessionId"])
}

func TestHTTPAPI_ResumeCarriesSessionIDThrough(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(`{"sessionId":"fixed-key","query":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readSSE(t, resp)
	var session map[string]string
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &session))
	assert.Equal(t, "fixed-key", session["sessionId"])
}

func TestHTTPAPI_ReadyReportsServiceUnavailableWhileDraining(t *testing.T) {
	srv, controller := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	controller.InitiateDrain()

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPAPI_RunRequestRejectedWhileDraining(t *testing.T) {
	srv, controller := newTestServer(t)
	controller.InitiateDrain()

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPAPI_DrainWaitsForInFlightRunThenForceCheckpoints(t *testing.T) {
	controller := lifecycle.New()
	store := memstore.New()
	router := NewRouter(Options{
		Controller: controller,
		Store:      store,
		Steps:      10,
		StepDelay:  30 * time.Millisecond,
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(`{"query":"long"}`))
		require.NoError(t, err)
		respCh <- resp
	}()

	time.Sleep(20 * time.Millisecond)
	controller.InitiateDrain()
	clean := controller.AwaitDrain(200 * time.Millisecond)
	assert.False(t, clean, "a still-running execution should force the deadline path")

	resp := <-respCh
	defer resp.Body.Close()
	frames := readSSE(t, resp)
	require.NotEmpty(t, frames)
	assert.Equal(t, "aborted", frames[len(frames)-1].event)
}
