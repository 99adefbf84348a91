package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/nats-io/nats.go"
)

// Client is the request side of the NATS surface, used by the CLI
type Client struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

func NewClient(conn *nats.Conn, prefix string, timeout time.Duration) *Client {
	return &Client{conn: conn, prefix: prefix, timeout: timeout}
}

func (c *Client) Login(sessionID string, user models.UserProfile) (*models.ChatResponse, error) {
	return c.request("login", models.LoginRequest{SessionID: sessionID, User: user})
}

func (c *Client) Chat(sessionID, message string) (*models.ChatResponse, error) {
	return c.request("chat", models.ChatRequest{SessionID: sessionID, UserMessage: message})
}

func (c *Client) Clear(sessionID string) (*models.ChatResponse, error) {
	return c.request("clear", models.SessionRequest{SessionID: sessionID})
}

func (c *Client) Logout(sessionID string) (*models.ChatResponse, error) {
	return c.request("logout", models.SessionRequest{SessionID: sessionID})
}

func (c *Client) request(name string, payload any) (*models.ChatResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	msg, err := c.conn.Request(c.prefix+"."+name, data, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}
