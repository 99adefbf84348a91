package transport

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/officebuddy/internal/config"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu     sync.Mutex
	chats  []string
	logins []string
	ended  []string
}

func (f *fakeHandler) ProcessChat(ctx context.Context, r *models.ChatRequest) *models.ChatResponse {
	f.mu.Lock()
	f.chats = append(f.chats, r.UserMessage)
	f.mu.Unlock()
	return &models.ChatResponse{SessionID: r.SessionID, Status: models.StatusReady, Reply: "echo: " + r.UserMessage}
}

func (f *fakeHandler) ProcessLogin(ctx context.Context, r *models.LoginRequest) *models.ChatResponse {
	f.mu.Lock()
	f.logins = append(f.logins, r.User.UserID)
	f.mu.Unlock()
	return &models.ChatResponse{SessionID: r.SessionID, Status: models.StatusReady, Reply: "welcome"}
}

func (f *fakeHandler) ProcessLogout(ctx context.Context, r *models.SessionRequest) *models.ChatResponse {
	f.mu.Lock()
	f.ended = append(f.ended, "logout:"+r.SessionID)
	f.mu.Unlock()
	return &models.ChatResponse{SessionID: r.SessionID, Status: models.StatusReady}
}

func (f *fakeHandler) ProcessClear(ctx context.Context, r *models.SessionRequest) *models.ChatResponse {
	f.mu.Lock()
	f.ended = append(f.ended, "clear:"+r.SessionID)
	f.mu.Unlock()
	return &models.ChatResponse{SessionID: r.SessionID, Status: models.StatusReady}
}

// setupTransport needs a NATS server; NATS_URL overrides the default
func setupTransport(t *testing.T, h Handler) (*NATSTransport, *Client) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	cfg := &config.Config{
		NatsURL:           url,
		NatsTimeout:       2 * time.Second,
		NatsSubjectPrefix: "test.officebuddy." + uuid.NewString()[:8],
		ServiceName:       "officebuddy-test",
	}
	conn, err := Connect(cfg, zerolog.Nop())
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	nt := NewNATSTransport(conn, cfg, h, zerolog.Nop())
	require.NoError(t, nt.Start())
	t.Cleanup(func() { nt.Close() })

	return nt, NewClient(conn, cfg.NatsSubjectPrefix, cfg.NatsTimeout)
}

func TestTransportRoundTrip(t *testing.T) {
	h := &fakeHandler{}
	_, client := setupTransport(t, h)

	resp, err := client.Login("s1", models.UserProfile{UserID: "u1", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "welcome", resp.Reply)

	resp, err = client.Chat("s1", "book a desk")
	require.NoError(t, err)
	assert.Equal(t, "echo: book a desk", resp.Reply)
	assert.Equal(t, models.StatusReady, resp.Status)

	_, err = client.Clear("s1")
	require.NoError(t, err)
	_, err = client.Logout("s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, h.logins)
	assert.Equal(t, []string{"book a desk"}, h.chats)
	assert.Equal(t, []string{"clear:s1", "logout:s1"}, h.ended)
}

func TestTransportRejectsMalformedRequest(t *testing.T) {
	h := &fakeHandler{}
	nt, _ := setupTransport(t, h)

	msg, err := nt.Conn().Request(nt.config.Subject("chat"), []byte("{not json"), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), models.ErrorParseError)
	assert.Empty(t, h.chats)
}
