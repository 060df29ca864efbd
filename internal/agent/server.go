// Package agent exposes email retrieval to agents as an MCP tool served
// over stdio.
package agent

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nhle/inboxpeek/internal/mailbox"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/source"
)

// ToolName is the name agents call the retrieval tool by.
const ToolName = "outlook_get_emails"

const toolDescription = `Fetches emails from Outlook within the specified time frame.

This function connects to the user's Outlook account and retrieves emails received
within the last specified number of hours. Useful for processing or analyzing recent
email communications.

Args:
    max_hours (int): The number of hours in the past to search for emails.

Returns:
    list[Email]: A list of Email objects representing the fetched emails.`

// Input is the tool's argument object.
type Input struct {
	MaxHours int `json:"max_hours" jsonschema:"the number of hours in the past to search for emails"`
}

// Output is the tool's structured result.
type Output struct {
	Emails []model.Email `json:"emails" jsonschema:"emails received in the window, newest first"`
}

// Server serves the retrieval tool. Every call opens and closes its own
// mailbox session.
type Server struct {
	open   func() (source.Source, error)
	logger *slog.Logger
	opts   []mailbox.Option
	mcp    *mcp.Server
}

// NewServer returns a Server that obtains its binding from open on every
// tool call.
func NewServer(version string, open func() (source.Source, error), logger *slog.Logger, opts ...mailbox.Option) *Server {
	s := &Server{
		open:   open,
		logger: logger,
		opts:   append([]mailbox.Option{mailbox.WithLogger(logger)}, opts...),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "inboxpeek", Version: version}, nil)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, s.getEmails)
	return s
}

// Run serves over stdin and stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio", "tool", ToolName)
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session over t. Used with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

func (s *Server) getEmails(ctx context.Context, _ *mcp.CallToolRequest, in Input) (*mcp.CallToolResult, Output, error) {
	log := s.logger.With("tool", ToolName, "max_hours", in.MaxHours)

	src, err := s.open()
	if err != nil {
		log.Error("resolving source", "error", err)
		return nil, Output{}, err
	}

	var out Output
	err = mailbox.WithSession(ctx, src, func(sess *mailbox.Session) error {
		log = log.With("session", sess.ID())
		emails, err := sess.ListRecent(ctx, in.MaxHours)
		if err != nil {
			return err
		}
		out.Emails = emails
		return nil
	}, s.opts...)
	if err != nil {
		log.Error("listing emails", "error", err)
		return nil, Output{}, err
	}

	log.Debug("listed emails", "count", len(out.Emails))
	return nil, out, nil
}
