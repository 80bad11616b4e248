package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

const uriScheme = "hymn://"

// registerResources exposes the language list and every hymn by URI.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         uriScheme + "languages",
		Name:        "languages",
		Description: "Languages with a searchable hymnal",
		MIMEType:    "application/json",
	}, s.handleLanguagesResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{language}/{id}",
		Name:        "hymn",
		Description: "Full text of one hymn",
		MIMEType:    "text/plain",
	}, s.handleHymnResource)
}

func (s *Server) handleLanguagesResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	langs := s.hymnal.Languages()
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, l.String())
	}
	data, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("marshalling languages: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleHymnResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	lang, id, ok := parseHymnURI(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	rec, err := s.hymnal.Hymn(ctx, lang, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     rec.Text,
		}},
	}, nil
}

// parseHymnURI splits hymn://<language>/<id>.
func parseHymnURI(uri string) (hymn.Language, int, bool) {
	rest, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return 0, 0, false
	}
	langPart, idPart, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, false
	}
	lang, err := hymn.ParseLanguage(langPart)
	if err != nil {
		return 0, 0, false
	}
	id, err := strconv.Atoi(idPart)
	if err != nil || id < 0 {
		return 0, 0, false
	}
	return lang, id, true
}
