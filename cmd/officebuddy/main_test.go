package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	sent    []string
	cleared int
	out     bool
	chatErr error
}

func (f *fakeClient) Login(string, models.UserProfile) (*models.ChatResponse, error) {
	return &models.ChatResponse{Status: models.StatusReady, Reply: "Welcome!"}, nil
}

func (f *fakeClient) Chat(_ string, message string) (*models.ChatResponse, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	f.sent = append(f.sent, message)
	return &models.ChatResponse{Status: models.StatusReady, Reply: "re: " + message}, nil
}

func (f *fakeClient) Clear(string) (*models.ChatResponse, error) {
	f.cleared++
	return &models.ChatResponse{Status: models.StatusReady}, nil
}

func (f *fakeClient) Logout(string) (*models.ChatResponse, error) {
	f.out = true
	return &models.ChatResponse{Status: models.StatusReady}, nil
}

func TestRunChat(t *testing.T) {
	client := &fakeClient{}
	opts := &chatOptions{sessionID: "s1", user: models.UserProfile{UserID: "u1", Name: "Ana"}}
	var out bytes.Buffer

	in := strings.NewReader("book a desk\n\n/clear\n2\n/logout\nnever sent\n")
	require.NoError(t, runChat(client, opts, in, &out))

	assert.Equal(t, []string{"book a desk", "2"}, client.sent)
	assert.Equal(t, 1, client.cleared)
	assert.True(t, client.out)
	assert.Contains(t, out.String(), "Logged in as Ana")
	assert.Contains(t, out.String(), "officebuddy> re: book a desk")
}

func TestRunChatKeepsGoingOnRequestErrors(t *testing.T) {
	client := &fakeClient{chatErr: errors.New("nats: timeout")}
	opts := &chatOptions{sessionID: "s1", user: models.UserProfile{UserID: "u1"}}
	var out bytes.Buffer

	require.NoError(t, runChat(client, opts, strings.NewReader("hello\nexit\n"), &out))
	assert.Contains(t, out.String(), "error: nats: timeout")
	assert.False(t, client.out)
}

func TestCatalogCommands(t *testing.T) {
	for _, args := range [][]string{{"catalog", "validate"}, {"catalog", "show"}} {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute(), args)
		assert.NotEmpty(t, out.String())
	}
}

func TestCatalogValidateMissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"catalog", "validate", "/nonexistent/catalog.yaml"})
	assert.Error(t, cmd.Execute())
}

func TestChatRequiresUser(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"chat"})
	assert.ErrorContains(t, cmd.Execute(), "--user-id")
}
