package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"treasure-hunt/auth"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
	"treasure-hunt/infrastructure/storage"
	"treasure-hunt/observability"
	"treasure-hunt/repositories"
	"treasure-hunt/runtime"
	"treasure-hunt/services"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const clientAppURL = "http://client.example"

// fakeProvider resolves codes from a fixed table.
type fakeProvider struct {
	identities map[string]string
}

func (p fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p fakeProvider) Resolve(_ context.Context, code string) (string, error) {
	identity, ok := p.identities[code]
	if !ok {
		return "", fmt.Errorf("%w: code rejected", errors.ErrUpstreamAuthFailure)
	}
	return identity, nil
}

type fixture struct {
	server *httptest.Server
	hub    *runtime.Hub
	client *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)

	backend, err := storage.NewFileBackend(t.TempDir(), log)
	req.NoError(err)
	links := repositories.NewLinkRepository(backend, domain.Links{}, log)
	messages := repositories.NewMessageRepository(backend, nil, log)
	metrics := observability.NewMetrics()

	relay := services.NewRelayService(services.RelayValidated, links, messages, log, false)
	hub := runtime.NewHub(log, runtime.NewRegistry(), relay, metrics)
	provider := fakeProvider{identities: map[string]string{"code-amy": "amy", "code-amy-again": "amy", "code-bob": "bob"}}

	server := NewServer(Deps{
		Chat:       services.NewChatService(messages, hub, nil, nil, metrics, log, services.ChatLimits{MaxUserLength: 32, MaxTextLength: 256, SearchLimit: 10}),
		Identity:   services.NewIdentityService(links, provider, auth.PlainState{}, hub, metrics, log, false),
		Hub:        hub,
		Monitoring: observability.NewMonitoringManager(),
		Metrics:    metrics,
		Log:        log,
		Counts:     func() (int, int) { return links.Len(), messages.Len() },
	}, Options{
		AllowedOrigins:       []string{"*"},
		ClientAppURL:         clientAppURL,
		ConnectionBufferSize: 16,
		MaxFrameSize:         4096,
		RelayRate:            100,
		RelayBurst:           100,
	})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		hub.Shutdown()
		ts.Close()
	})
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &fixture{server: ts, hub: hub, client: client}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	response, err := f.client.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(response.Body).Decode(&decoded)
	return response, decoded
}

func (f *fixture) listChat(t *testing.T, path string) []domain.ChatMessage {
	t.Helper()
	response, err := f.client.Get(f.server.URL + path)
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)
	var messages []domain.ChatMessage
	require.NoError(t, json.NewDecoder(response.Body).Decode(&messages))
	return messages
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	return decoded
}

func TestGateway_PostThenListChat(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When Amy says ahoy
	response, body := f.do(t, http.MethodPost, "/chat", map[string]string{"user": "Amy", "text": "ahoy"})

	// Then the message is created and listed as is
	req.Equal(http.StatusCreated, response.StatusCode)
	req.Equal("Amy", body["user"])
	req.Equal("ahoy", body["text"])
	req.NotEmpty(body["id"])
	req.NotEmpty(body["timestamp"])

	listed := f.listChat(t, "/chat")
	req.Len(listed, 1)
	req.Equal(body["id"], listed[0].ID)
	req.Equal(body["timestamp"], listed[0].Timestamp)

	// The legacy client path serves the same log
	req.Equal(listed, f.listChat(t, "/api/chat"))
}

func TestGateway_ChatPagination(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	for i := range 3 {
		response, _ := f.do(t, http.MethodPost, "/chat", map[string]string{"user": "u", "text": fmt.Sprintf("t%d", i)})
		req.Equal(http.StatusCreated, response.StatusCode)
	}

	page := f.listChat(t, "/chat?offset=1&limit=1")
	req.Len(page, 1)
	req.Equal("t1", page[0].Text)

	response, body := f.do(t, http.MethodGet, "/chat?limit=-2", nil)
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("InvalidRequest", body["code"])
}

func TestGateway_PostChat_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "missing text", body: map[string]string{"user": "Amy"}},
		{name: "blank user", body: map[string]string{"user": "  ", "text": "ahoy"}},
		{name: "not an object", body: []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)

			response, body := f.do(t, http.MethodPost, "/chat", tt.body)

			req.Equal(http.StatusBadRequest, response.StatusCode)
			req.Equal("InvalidRequest", body["code"])
			req.Empty(f.listChat(t, "/chat"))
		})
	}
}

func TestGateway_LookupUnlinked(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/identity/0xabc", nil)

	req.Equal(http.StatusNotFound, response.StatusCode)
	req.Equal("NotFound", body["code"])
}

func TestGateway_LinkConflict(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given 0xabc linked to amy
	response, _ := f.do(t, http.MethodGet, "/identity/callback?code=code-amy&state=0xabc", nil)
	req.Equal(http.StatusFound, response.StatusCode)
	req.Equal(clientAppURL, response.Header.Get("Location"))

	_, body := f.do(t, http.MethodGet, "/identity/0xabc", nil)
	req.Equal("amy", body["identity"])
	_, body = f.do(t, http.MethodGet, "/discord/0xABC", nil)
	req.Equal("amy", body["discordId"])

	// When 0xdef tries to take amy
	response, body = f.do(t, http.MethodGet, "/discord/callback?code=code-amy-again&state=0xdef", nil)

	// Then the conflict names the existing address and nothing changed
	req.Equal(http.StatusConflict, response.StatusCode)
	req.Equal("IdentityAlreadyLinked", body["code"])
	req.Equal("0xabc", body["existingAddress"])
	response, _ = f.do(t, http.MethodGet, "/identity/0xdef", nil)
	req.Equal(http.StatusNotFound, response.StatusCode)
}

func TestGateway_Callback_Failures(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{name: "missing code", query: "state=0xabc", status: http.StatusBadRequest, code: "InvalidRequest"},
		{name: "missing state", query: "code=code-amy", status: http.StatusBadRequest, code: "InvalidRequest"},
		{name: "rejected code", query: "code=forged&state=0xabc", status: http.StatusInternalServerError, code: "UpstreamAuthFailure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)

			response, body := f.do(t, http.MethodGet, "/identity/callback?"+tt.query, nil)

			req.Equal(tt.status, response.StatusCode)
			req.Equal(tt.code, body["code"])
		})
	}
}

func TestGateway_Forgive(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	response, _ := f.do(t, http.MethodGet, "/identity/callback?code=code-amy&state=0xabc", nil)
	req.Equal(http.StatusFound, response.StatusCode)

	response, body := f.do(t, http.MethodPost, "/identity/forgive", map[string]string{"address": "0xabc"})
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("User forgiven", body["message"])

	response, _ = f.do(t, http.MethodGet, "/identity/0xabc", nil)
	req.Equal(http.StatusNotFound, response.StatusCode)

	// A second forgive finds nothing
	response, _ = f.do(t, http.MethodPost, "/discord/forgive", map[string]string{"address": "0xabc"})
	req.Equal(http.StatusNotFound, response.StatusCode)

	response, body = f.do(t, http.MethodPost, "/identity/forgive", map[string]string{})
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("InvalidRequest", body["code"])
}

func TestGateway_BeginLink(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/identity/link?address=0xABC", nil)
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("https://provider.example/authorize?state=0xabc", body["url"])

	response, _ = f.do(t, http.MethodGet, "/identity/authorize?address=0xabc", nil)
	req.Equal(http.StatusFound, response.StatusCode)
	req.Equal("https://provider.example/authorize?state=0xabc", response.Header.Get("Location"))

	response, _ = f.do(t, http.MethodGet, "/identity/link", nil)
	req.Equal(http.StatusBadRequest, response.StatusCode)
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodPut, path: "/chat"},
		{method: http.MethodDelete, path: "/identity/0xabc"},
		{method: http.MethodPost, path: "/identity/callback"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)

			response, body := f.do(t, tt.method, tt.path, nil)

			req.Equal(http.StatusMethodNotAllowed, response.StatusCode)
			req.Equal("MethodNotAllowed", body["code"])
		})
	}
}

func TestGateway_CORS(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	request, err := http.NewRequest(http.MethodOptions, f.server.URL+"/chat", nil)
	req.NoError(err)
	request.Header.Set("Origin", "http://game.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	response, err := f.client.Do(request)
	req.NoError(err)
	defer response.Body.Close()

	req.Equal("*", response.Header.Get("Access-Control-Allow-Origin"))
	req.Contains(response.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestGateway_HealthAndStats(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/healthz", nil)
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("ok", body["status"])

	f.do(t, http.MethodPost, "/chat", map[string]string{"user": "Amy", "text": "ahoy"})
	response, body = f.do(t, http.MethodGet, "/stats", nil)
	req.Equal(http.StatusOK, response.StatusCode)
	req.EqualValues(1, body["messages"])
	req.EqualValues(0, body["links"])

	response, _ = f.do(t, http.MethodGet, "/metrics", nil)
	req.Equal(http.StatusOK, response.StatusCode)
}

func TestGateway_RootWithoutUpgrade(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/", nil)

	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("InvalidRequest", body["code"])
}

func TestGateway_WebSocketBroadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a linked claimant and two live connections
	response, _ := f.do(t, http.MethodGet, "/identity/callback?code=code-amy&state=0xabc", nil)
	req.Equal(http.StatusFound, response.StatusCode)
	sender := f.dial(t, "/ws")
	receiver := f.dial(t, "/")
	req.Eventually(func() bool { return f.hub.Len() == 2 }, 3*time.Second, 10*time.Millisecond)

	// When the sender relays a claim with a forged identity
	req.NoError(sender.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"treasureClaimed","treasureId":7,"claimant":"0xabc","discordId":"mallory"}`)))

	// Then the receiver gets it with the stored identity
	claim := readEvent(t, receiver)
	req.Equal("treasureClaimed", claim["type"])
	req.EqualValues(7, claim["treasureId"])
	req.Equal("amy", claim["discordId"])

	// And a stored chat message reaches both, the sender never seeing its own claim
	response, posted := f.do(t, http.MethodPost, "/chat", map[string]string{"user": "Amy", "text": "ahoy"})
	req.Equal(http.StatusCreated, response.StatusCode)
	for _, conn := range []*websocket.Conn{sender, receiver} {
		chat := readEvent(t, conn)
		req.Equal("newChatMessage", chat["type"])
		req.Equal(posted["id"], chat["message"].(map[string]any)["id"])
	}
}

func TestGateway_WebSocketDisconnectUnregisters(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := f.dial(t, "/ws")
	req.Eventually(func() bool { return f.hub.Len() == 1 }, 3*time.Second, 10*time.Millisecond)

	req.NoError(conn.Close())

	req.Eventually(func() bool { return f.hub.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}
