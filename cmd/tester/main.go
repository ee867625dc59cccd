package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

// Config of the manual tester. Every line typed on stdin is posted as a chat
// message; every broadcast event is printed as it arrives.
type Config struct {
	ServerURL string `envconfig:"TESTER_SERVER_URL" default:"http://localhost:3000"`
	User      string `envconfig:"TESTER_USER" default:"tester"`
	Colours   bool   `envconfig:"TESTER_COLOURS" default:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("config error: %v", err)
	}

	wsURL, err := websocketURL(config.ServerURL)
	if err != nil {
		log.Fatalf("invalid server url: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("cannot connect to %s: %v", wsURL, err)
	}
	defer conn.Close()
	printHeader(config, fmt.Sprintf("Connected to %s as %s", wsURL, config.User))

	go watch(config, conn)
	go post(config)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func websocketURL(server string) (string, error) {
	parsed, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/ws"
	return parsed.String(), nil
}

func watch(config Config, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			printHeader(config, fmt.Sprintf("Connection closed: %v", err))
			os.Exit(0)
		}
		var envelope struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(payload, &envelope)
		label := fmt.Sprintf("[%s] %s", time.Now().Format(time.TimeOnly), envelope.Type)
		if config.Colours {
			label = color.New(color.FgCyan, color.OpBold).Render(label)
		}
		fmt.Printf("%s %s\n", label, payload)
	}
}

func post(config Config) {
	client := &http.Client{Timeout: 10 * time.Second}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		body, _ := json.Marshal(map[string]string{"user": config.User, "text": text})
		response, err := client.Post(config.ServerURL+"/chat", "application/json", bytes.NewReader(body))
		if err != nil {
			printError(config, err.Error())
			continue
		}
		_ = response.Body.Close()
		if response.StatusCode != http.StatusCreated {
			printError(config, "POST /chat answered "+response.Status)
		}
	}
}

func printHeader(config Config, text string) {
	header := fmt.Sprintf("  ====== %s ======", text)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
}

func printError(config Config, text string) {
	if config.Colours {
		text = color.FgRed.Render(text)
	}
	fmt.Println(text)
}
