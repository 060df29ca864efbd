package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/source"
	"github.com/nhle/inboxpeek/internal/source/memory"
	"github.com/nhle/inboxpeek/tests/testutil"
)

func connect(t *testing.T, open func() (source.Source, error)) *mcp.ClientSession {
	t.Helper()
	return connectWithLogger(t, open, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func connectWithLogger(t *testing.T, open func() (source.Source, error), logger *slog.Logger) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	srv := NewServer("test", open, logger, mailbox.WithClock(testutil.Clock))

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, hours int) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"max_hours": hours},
	})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestGetEmails_RoundTrip(t *testing.T) {
	src := memory.New(
		testutil.Message("1", "older", 5*time.Hour),
		testutil.Message("2", "newer", time.Hour),
		testutil.Message("3", "outside", 50*time.Hour),
	)
	cs := connect(t, func() (source.Source, error) { return src, nil })

	res := callTool(t, cs, 7)
	require.False(t, res.IsError, resultText(t, res))

	var out Output
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out.Emails, 2)
	assert.Equal(t, "newer", out.Emails[0].Subject)
	assert.Equal(t, "older", out.Emails[1].Subject)
	assert.Equal(t, "Team; Ops", out.Emails[0].To)
	require.NotNil(t, out.Emails[0].ReceivedAt)
	assert.True(t, testutil.Now.Add(-time.Hour).Equal(*out.Emails[0].ReceivedAt))

	// Each call gets its own session.
	callTool(t, cs, 7)
	assert.Equal(t, 2, src.Opened())
	assert.Equal(t, 2, src.Closed())
}

func TestGetEmails_EmptyWindow(t *testing.T) {
	src := memory.New(testutil.Message("1", "recent", time.Hour))
	cs := connect(t, func() (source.Source, error) { return src, nil })

	res := callTool(t, cs, 0)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"emails":[]}`, resultText(t, res))
}

func TestGetEmails_FailureIsToolError(t *testing.T) {
	src := memory.New()
	src.OpenErr = errors.New("Outlook is not running")
	cs := connect(t, func() (source.Source, error) { return src, nil })

	res := callTool(t, cs, 7)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Outlook is not running")

	// The session keeps serving after a failed call.
	src.OpenErr = nil
	res = callTool(t, cs, 7)
	assert.False(t, res.IsError)
}

func TestGetEmails_SourceResolutionError(t *testing.T) {
	cs := connect(t, func() (source.Source, error) { return nil, errors.New("source work: no password configured") })

	res := callTool(t, cs, 7)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no password configured")
}

func TestListTools(t *testing.T) {
	cs := connect(t, func() (source.Source, error) { return memory.New(), nil })

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, ToolName, tools.Tools[0].Name)
	assert.Contains(t, tools.Tools[0].Description, "within the last specified number of hours")
}

func TestGetEmails_LogsSessionID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	src := memory.New(testutil.Message("1", "recent", time.Hour))
	cs := connectWithLogger(t, func() (source.Source, error) { return src, nil }, logger)

	res := callTool(t, cs, 7)
	require.False(t, res.IsError)
	assert.Regexp(t, `msg="listed emails".* session=[0-9a-f-]{36}`, logs.String())
}
