package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL is not set")
	}
	s.Config.ServerURL = strings.TrimRight(s.Config.ServerURL, "/")
	s.client = &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Step prints a colorized header for a scenario step
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Call sends a JSON request and decodes the JSON answer into out when given
func (s *BaseHTTPSuite) Call(method, path string, body, out any) int {
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, s.Config.ServerURL+path, reader)
	s.Require().NoError(err)
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := s.client.Do(request)
	s.Require().NoError(err, "request to "+path+" failed")
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	s.Require().NoError(err)
	s.T().Logf("HTTP %s %s [%d] in %v", method, path, response.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE:\n%s", raw)
	}
	if out != nil && len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return response.StatusCode
}

// Dial opens a broadcast connection on the server
func (s *BaseHTTPSuite) Dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.Config.ServerURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to open websocket at "+url)
	return conn
}

// NextEvent waits for the next broadcast event of the given type
func (s *BaseHTTPSuite) NextEvent(conn *websocket.Conn, eventType string) map[string]any {
	deadline := time.Now().Add(5 * time.Second)
	for {
		s.Require().NoError(conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		s.Require().NoError(err, "no "+eventType+" event received")
		var decoded map[string]any
		if json.Unmarshal(payload, &decoded) == nil && decoded["type"] == eventType {
			return decoded
		}
	}
}
