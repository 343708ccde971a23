// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes taskwise tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/taskservice"
)

const grammarURI = "taskwise://command-grammar"

// Server wraps the MCP server with taskwise tools.
type Server struct {
	mcp *server.MCPServer
	svc *taskservice.Service
}

// New creates a new MCP server with all taskwise tools registered.
func New(svc *taskservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"taskwise",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Interpret a natural-language request about notebooks and tasks "+
			"(create, move, list, search, statistics) and apply it."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The request, e.g. \"move tappy-tf-shared to archived\"")),
		mcp.WithBoolean("verbose", mcp.Description("Include the request id, path and issued commands")),
	), s.ask)

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Run one line of the command grammar without the language model. "+
			"Read the grammar first via get_command_grammar or the "+grammarURI+" resource."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Grammar line, e.g. task:move 149 archived")),
	), s.runCommand)

	s.mcp.AddTool(mcp.NewTool("get_command_grammar",
		mcp.WithDescription("Returns the command grammar and import document format."),
	), s.getCommandGrammar)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List notebooks with their task counts per status."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally in one notebook and with one status."),
		mcp.WithString("notebook", mcp.Description("Optional notebook name")),
		mcp.WithString("status", mcp.Description("Optional status: todo, in_progress, done, archived or a synonym")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Full-text search through task titles, descriptions and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchTasks)

	// Resource: command grammar.
	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Command Grammar",
			mcp.WithResourceDescription("The command grammar accepted by run_command and issued by the interpreter."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verbose := req.GetBool("verbose", false)

	ans, err := s.svc.Ask(ctx, prompt, interpreter.AskOptions{Verbose: verbose})
	if err != nil {
		if errors.Is(err, apperr.ErrTransport) {
			return mcp.NewToolResultError("language model unavailable: " + err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(ans.Render(verbose)), nil
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.Execute(ctx, line)
	if !res.OK {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(res)
}

func (s *Server) getCommandGrammar(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CommandGuide()), nil
}

func (s *Server) readGrammarResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     CommandGuide(),
		},
	}, nil
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbs, err := s.svc.ListNotebooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nbs)
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.svc.ListTasks(ctx, req.GetString("notebook", ""), req.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tasks)
}

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tasks, err := s.svc.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tasks)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
