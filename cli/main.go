// Package main provides a line-oriented CLI client for the conversion WebSocket endpoint.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeConvert  = "convert"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// ConvertMessage is sent to request a conversion.
type ConvertMessage struct {
	BaseMessage
	Prompt   string `json:"prompt"`
	Protocol string `json:"protocol,omitempty"`
	Model    string `json:"model,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Progress is one progress update from the server.
type Progress struct {
	Kind    string   `json:"kind"`
	Text    string   `json:"text,omitempty"`
	State   string   `json:"state,omitempty"`
	Tools   []string `json:"tools,omitempty"`
	Queries []string `json:"queries,omitempty"`
}

// ServerMessage is any message from the server.
type ServerMessage struct {
	BaseMessage
	Progress *Progress      `json:"progress,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
	Error    *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
}

// NewClient creates a new client and connects to the server.
func NewClient(addr, apiKey string) (*Client, error) {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	conn, _, err := websocket.DefaultDialer.Dial(addr, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Convert sends one prompt and prints updates until the result or an error arrives.
func (c *Client) Convert(prompt, protocol, model, title string) error {
	msg := ConvertMessage{
		BaseMessage: BaseMessage{
			Type:      TypeConvert,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Prompt:   prompt,
		Protocol: protocol,
		Model:    model,
		Title:    title,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write convert: %w", err)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var m ServerMessage
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch m.Type {
		case TypeProgress:
			printProgress(m.Progress)
		case TypeResult:
			formatted, _ := json.MarshalIndent(m.Result, "", "  ")
			fmt.Printf("\n[result]\n%s\n", formatted)
			return nil
		case TypeError:
			if m.Error != nil {
				fmt.Printf("\n[error] %s: %s\n", m.Error.Kind, m.Error.Message)
			}
			return nil
		}
	}
}

func printProgress(p *Progress) {
	if p == nil {
		return
	}
	switch p.Kind {
	case "text_delta":
		fmt.Print(p.Text)
	case "tool_usage":
		if len(p.Queries) > 0 {
			fmt.Printf("\n[searching] %s\n", strings.Join(p.Queries, "; "))
		} else {
			fmt.Printf("\n[tools] %s\n", strings.Join(p.Tools, ", "))
		}
	case "run_status":
		fmt.Printf("[run] %s\n", p.State)
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/v1/conversions/ws", "WebSocket server address")
	apiKey := flag.String("api-key", "", "API key for the upstream service")
	protocol := flag.String("protocol", "stream", "Protocol: stream, completion or run")
	model := flag.String("model", "", "Model override")
	title := flag.String("title", "", "Page title override")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, *apiKey)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Connected.")
	fmt.Println("\nDescribe a page and press Enter to convert it.")
	fmt.Println("Commands: /quit to exit")

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted")
		client.Close()
		os.Exit(0)
	}()

	// Read user input
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return
		}

		if err := client.Convert(input, *protocol, *model, *title); err != nil {
			log.Printf("Conversion failed: %v", err)
			return
		}
	}
}
