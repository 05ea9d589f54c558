package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/callagent/internal/agent"
	"github.com/ent0n29/callagent/internal/config"
	"github.com/ent0n29/callagent/internal/observability"
	"github.com/ent0n29/callagent/internal/pipeline"
	"github.com/ent0n29/callagent/internal/session"
	"github.com/ent0n29/callagent/internal/vonage"
)

// echoAttacher sends every received frame straight back until end of stream.
type echoAttacher struct {
	sessions *session.Registry
	attached chan string
}

func (a *echoAttacher) Attach(_ context.Context, sessionID string, t pipeline.Transport) error {
	defer t.Close()
	if _, err := a.sessions.Get(sessionID); err != nil {
		return err
	}
	a.attached <- sessionID
	for {
		frame, err := t.Receive()
		if err != nil {
			return nil
		}
		if err := t.Send(frame); err != nil {
			return nil
		}
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *session.Registry, *echoAttacher) {
	t.Helper()
	if cfg.CallMaxDuration == 0 {
		cfg.CallMaxDuration = 3 * time.Minute
	}
	sessions := session.NewRegistry(nil)
	attacher := &echoAttacher{sessions: sessions, attached: make(chan string, 1)}
	metrics := observability.NewMetrics("test_httpapi", prometheus.NewRegistry())
	agents := agent.NewInMemoryCatalog(agent.DefaultAgents()...)
	srv := New(cfg, sessions, agents, attacher, metrics, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, sessions, attacher
}

func TestAnswerCreatesSessionAndReturnsNCCO(t *testing.T) {
	ts, sessions, _ := newTestServer(t, config.Config{PublicHost: "calls.example.com"})

	res, err := http.Get(ts.URL + "/webhooks/answer?uuid=vonage-uuid&agent_id=agent_001")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var ncco []vonage.Action
	require.NoError(t, json.NewDecoder(res.Body).Decode(&ncco))
	require.Len(t, ncco, 1)
	assert.Equal(t, "connect", ncco[0].Action)
	require.Len(t, ncco[0].Endpoint, 1)
	ep := ncco[0].Endpoint[0]
	id := ep.Headers["call_state_id"]
	require.NotEmpty(t, id)
	assert.Equal(t, "wss://calls.example.com/socket/"+id, ep.URI)
	assert.Equal(t, "audio/l16;rate=16000", ep.ContentType)

	sess, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "vonage-uuid", sess.CallUUID)
	assert.Equal(t, "agent_001", sess.AgentID)
	assert.Equal(t, 3*time.Minute, sess.MaxDuration)
}

func TestAnswerAcceptsPost(t *testing.T) {
	ts, sessions, _ := newTestServer(t, config.Config{})
	res, err := http.Post(ts.URL+"/webhooks/answer?uuid=u1&agent_id=agent_001", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, sessions.Len())
}

func TestAnswerRejectsMissingParameters(t *testing.T) {
	ts, sessions, _ := newTestServer(t, config.Config{})
	for _, query := range []string{"agent_id=agent_001", "uuid=abc"} {
		res, err := http.Get(ts.URL + "/webhooks/answer?" + query)
		require.NoError(t, err)
		var body errorResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.NotEmpty(t, body.Error)
	}
	assert.Equal(t, 0, sessions.Len())
}

func TestWebhooksRequireSignatureWhenConfigured(t *testing.T) {
	ts, _, _ := newTestServer(t, config.Config{VonageSignatureSecret: "s3cret"})

	res, err := http.Post(ts.URL+"/webhooks/event", "application/json", strings.NewReader(`{"status":"ringing"}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/webhooks/event", strings.NewReader(`{"status":"answered","uuid":"u1"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestEventWebhookAcceptsEmptyBody(t *testing.T) {
	ts, _, _ := newTestServer(t, config.Config{})
	res, err := http.Post(ts.URL+"/webhooks/event", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestSocketAttachesPipeline(t *testing.T) {
	ts, sessions, attacher := newTestServer(t, config.Config{})
	id := sessions.Create("u1", "agent_001", time.Minute)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/socket/"+id, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case got := <-attacher.attached:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline was not attached")
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"websocket:connected"}`)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestGetSession(t *testing.T) {
	ts, sessions, _ := newTestServer(t, config.Config{})
	id := sessions.Create("u1", "agent_001", time.Minute)

	res, err := http.Get(ts.URL + "/v1/sessions/" + id)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got session.Session
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, id, got.ID)

	missing, err := http.Get(ts.URL + "/v1/sessions/unknown")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	ts, _, _ := newTestServer(t, config.Config{EngineProvider: "mock"})

	for _, path := range []string{"/", "/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}

	answer, err := http.Get(ts.URL + "/webhooks/answer?uuid=u&agent_id=agent_001")
	require.NoError(t, err)
	answer.Body.Close()

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_httpapi_session_events_total{event="created"} 1`)
}

func TestListAgents(t *testing.T) {
	ts, _, _ := newTestServer(t, config.Config{})

	res, err := http.Get(ts.URL + "/v1/agents")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Agents []agent.Agent `json:"agents"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body.Agents, 1)
	assert.Equal(t, "agent_001", body.Agents[0].ID)
	assert.Equal(t, "nova-3", body.Agents[0].STTModelID)
}

func TestListAgentsWithoutCatalog(t *testing.T) {
	srv := New(config.Config{}, session.NewRegistry(nil), nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnswerIncrementsActiveSessions(t *testing.T) {
	metrics := observability.NewMetrics("test_active", prometheus.NewRegistry())
	srv := New(config.Config{CallMaxDuration: time.Minute}, session.NewRegistry(nil), nil, nil, metrics, nil)
	h := srv.Router()

	for _, u := range []string{"u1", "u2"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhooks/answer?uuid="+u+"&agent_id=agent_001", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ActiveSessions))
}
