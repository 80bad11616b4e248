package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/service"
	"github.com/Aman-CERP/choralmind/pkg/version"
)

// Hymnal is the service the tools call.
type Hymnal interface {
	Retrieve(ctx context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error)
	Ask(ctx context.Context, query string, lang hymn.Language) (*service.Answer, error)
	Hymn(ctx context.Context, lang hymn.Language, id int) (hymn.Record, error)
	Languages() []hymn.Language
}

// ManifestSource reports the published index for a language.
type ManifestSource interface {
	Manifest(lang hymn.Language) (*index.Manifest, bool)
}

// Server is the MCP server for ChoralMind.
type Server struct {
	mcp       *mcp.Server
	hymnal    Hymnal
	manifests ManifestSource
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithManifests enables index_status reporting from src.
func WithManifests(src ManifestSource) Option {
	return func(s *Server) { s.manifests = src }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP server.
func NewServer(h Hymnal, opts ...Option) (*Server, error) {
	if h == nil {
		return nil, errors.New("hymnal is required")
	}

	s := &Server{
		hymnal: h,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ChoralMind",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "ChoralMind", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, 0, len(toolInfos))
	for _, t := range toolInfos {
		if t.Name == ToolIndexStatus && s.manifests == nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CallTool invokes a tool by name with JSON-like arguments, bypassing the
// transport. The result is the tool's structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchHymns:
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleSearch(ctx, in)
		return out, err
	case ToolFindHymn:
		var in FindInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleFind(ctx, in)
		return out, err
	case ToolGetHymn:
		var in HymnInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleHymn(ctx, in)
		return out, err
	case ToolIndexStatus:
		if s.manifests == nil {
			return nil, NewMethodNotFoundError(name)
		}
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) registerTools() {
	for _, t := range s.ListTools() {
		tool := &mcp.Tool{Name: t.Name, Description: t.Description}
		switch t.Name {
		case ToolSearchHymns:
			mcp.AddTool(s.mcp, tool, s.mcpSearchHandler)
		case ToolFindHymn:
			mcp.AddTool(s.mcp, tool, s.mcpFindHandler)
		case ToolGetHymn:
			mcp.AddTool(s.mcp, tool, s.mcpHymnHandler)
		case ToolIndexStatus:
			mcp.AddTool(s.mcp, tool, s.mcpIndexStatusHandler)
		}
		s.logger.Debug("mcp_tool_registered", slog.String("name", t.Name))
	}
}

// parseRequest validates the language and query shared by the search tools.
func parseRequest(query, language string) (hymn.Language, error) {
	lang, err := hymn.ParseLanguage(language)
	if err != nil {
		return 0, NewInvalidParamsError(err.Error())
	}
	if strings.TrimSpace(query) == "" {
		return 0, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	return lang, nil
}

func (s *Server) handleSearch(ctx context.Context, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	lang, err := parseRequest(in.Query, in.Language)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	start := time.Now()
	requestID := generateRequestID()
	results, err := s.hymnal.Retrieve(ctx, in.Query, lang, clampK(in.K))
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("language", lang.String()),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}
	s.logger.Info("mcp_search_complete",
		slog.String("request_id", requestID),
		slog.String("language", lang.String()),
		slog.Int("result_count", len(results)),
		slog.Duration("duration", time.Since(start)))

	out := SearchOutput{Language: lang.String(), Results: toResultOutputs(results)}
	return textResult(FormatSearchResults(in.Query, lang, results)), out, nil
}

func (s *Server) handleFind(ctx context.Context, in FindInput) (*mcp.CallToolResult, FindOutput, error) {
	lang, err := parseRequest(in.Query, in.Language)
	if err != nil {
		return nil, FindOutput{}, err
	}

	answer, err := s.hymnal.Ask(ctx, in.Query, lang)
	if err != nil {
		return nil, FindOutput{}, MapError(err)
	}

	out := FindOutput{
		Answer:  answer.Text,
		Matched: answer.Matched,
		Sources: toResultOutputs(answer.Results),
	}
	return textResult(answer.Text), out, nil
}

func (s *Server) handleHymn(ctx context.Context, in HymnInput) (*mcp.CallToolResult, HymnOutput, error) {
	lang, err := hymn.ParseLanguage(in.Language)
	if err != nil {
		return nil, HymnOutput{}, NewInvalidParamsError(err.Error())
	}

	rec, err := s.hymnal.Hymn(ctx, lang, in.ID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
			return nil, HymnOutput{}, &MCPError{
				Code:    ErrCodeHymnNotFound,
				Message: fmt.Sprintf("%s hymn %d not found", lang.DisplayName(), in.ID),
			}
		}
		return nil, HymnOutput{}, MapError(err)
	}

	out := HymnOutput{
		ID:       rec.ID,
		Language: lang.String(),
		Number:   rec.Number,
		Title:    rec.Title,
		Text:     rec.Text,
	}
	return textResult(rec.Text), out, nil
}

func (s *Server) indexStatus() *IndexStatusOutput {
	out := &IndexStatusOutput{}
	for _, lang := range hymn.Languages() {
		st := LanguageStatusOutput{Language: lang.String()}
		if m, ok := s.manifests.Manifest(lang); ok {
			st.Ready = true
			st.Generation = m.Generation
			st.Model = m.Model
			st.Hymns = m.Hymns
			st.Chunks = m.Chunks
			st.BuiltAt = m.BuiltAt.UTC().Format(time.RFC3339)
		}
		out.Languages = append(out.Languages, st)
	}
	return out
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	return s.handleSearch(ctx, in)
}

func (s *Server) mcpFindHandler(ctx context.Context, _ *mcp.CallToolRequest, in FindInput) (
	*mcp.CallToolResult,
	FindOutput,
	error,
) {
	return s.handleFind(ctx, in)
}

func (s *Server) mcpHymnHandler(ctx context.Context, _ *mcp.CallToolRequest, in HymnInput) (
	*mcp.CallToolResult,
	HymnOutput,
	error,
) {
	return s.handleHymn(ctx, in)
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
