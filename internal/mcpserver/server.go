// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Eihwaz vault tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/nbirkeland/eihwaz/internal/storage"
	"github.com/nbirkeland/eihwaz/internal/vault"
)

// AdvancedToolsEnv gates the non-core tools (list_notes,
// get_note_contract, upload_asset). Set to "1" or "true" to enable.
const AdvancedToolsEnv = "EIHWAZ_ADVANCED_TOOLS"

// Server wraps the MCP server with Eihwaz tools.
type Server struct {
	mcp   *server.MCPServer
	vault *vault.Vault
	store storage.Provider
}

// New creates an MCP server with all core tools registered. Advanced
// tools are added only when the EIHWAZ_ADVANCED_TOOLS toggle is on.
func New(v *vault.Vault, store storage.Provider) *Server {
	s := &Server{vault: v, store: store}

	s.mcp = server.NewMCPServer(
		"Eihwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a Markdown note at the given path. A .md extension "+
			"is appended when missing. An existing file at the same path is overwritten."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path for the note")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body, [[wikilinks]] allowed")),
		mcp.WithString("frontmatter", mcp.Description("Optional YAML mapping written as the frontmatter block")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its parsed frontmatter, tags, links, and backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note. Omitted fields keep their current values."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of an existing note")),
		mcp.WithString("content", mcp.Description("Replacement Markdown body")),
		mcp.WithString("frontmatter", mcp.Description("Replacement YAML frontmatter mapping")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note from the vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Fuzzy full-text search across note names, titles, content, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; hits must carry at least one")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_forward_links",
		mcp.WithDescription("List the resolved outgoing links of the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to list links for")),
	), s.getForwardLinks)

	s.mcp.AddTool(mcp.NewTool("analyze_links",
		mcp.WithDescription("Report link totals, broken references, orphaned notes, and the most connected notes."),
	), s.analyzeLinks)

	s.mcp.AddTool(mcp.NewTool("vault_statistics",
		mcp.WithDescription("Aggregate counts: notes, words, tags, and recently modified notes."),
	), s.vaultStatistics)

	if advancedToolsEnabled() {
		s.registerAdvancedTools()
	}

	return s
}

// registerAdvancedTools adds the non-core tools and the note format
// resource.
func (s *Server) registerAdvancedTools() {
	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Eihwaz note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an asset from a URL or data URI into the vault's "+
			"attachments directory and return a Markdown image reference."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource("eihwaz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)
}

func advancedToolsEnabled() bool {
	switch strings.ToLower(os.Getenv(AdvancedToolsEnv)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) createNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fm, err := optionalFrontmatter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.vault.Create(path, content, fm)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.vault.Read(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload := struct {
		Path        string         `json:"path"`
		Title       string         `json:"title,omitempty"`
		Frontmatter map[string]any `json:"frontmatter,omitempty"`
		Body        string         `json:"body"`
		Tags        []string       `json:"tags,omitempty"`
		WordCount   int            `json:"word_count"`
		Links       []string       `json:"links"`
		Backlinks   []string       `json:"backlinks"`
	}{
		Path:        note.Path,
		Title:       note.Title,
		Frontmatter: note.Frontmatter,
		Body:        note.Body,
		Tags:        note.Tags,
		WordCount:   note.WordCount,
		Links:       s.vault.ForwardLinks(note.Path),
		Backlinks:   s.vault.Backlinks(note.Path),
	}
	out, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var content *string
	if raw, ok := req.GetArguments()["content"]; ok {
		if str, ok := raw.(string); ok {
			content = &str
		}
	}
	fm, err := optionalFrontmatter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.vault.Update(path, content, fm)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", note.Path)), nil
}

func (s *Server) deleteNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.vault.Delete(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var tags []string
	if raw, rErr := req.RequireString("tags"); rErr == nil && raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	limit := 20
	if raw, ok := req.GetArguments()["limit"]; ok {
		if f, ok := raw.(float64); ok && f > 0 {
			limit = int(f)
		}
	}

	matches, err := s.vault.Search(query, tags, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl := s.vault.Backlinks(path)
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getForwardLinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fl := s.vault.ForwardLinks(path)
	if len(fl) == 0 {
		return mcp.NewToolResultText("no outgoing links"), nil
	}
	return mcp.NewToolResultText(strings.Join(fl, "\n")), nil
}

func (s *Server) analyzeLinks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.vault.AnalyzeLinks(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) vaultStatistics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.vault.Statistics(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	var paths []string
	for _, item := range s.vault.List() {
		if folder != "" && !strings.HasPrefix(item.Path, strings.TrimSuffix(folder, "/")+"/") {
			continue
		}
		paths = append(paths, item.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "eihwaz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// optionalFrontmatter parses the optional frontmatter argument as a YAML
// mapping. Absent or empty means nil (keep/omit).
func optionalFrontmatter(req mcp.CallToolRequest) (map[string]any, error) {
	raw, ok := req.GetArguments()["frontmatter"]
	if !ok {
		return nil, nil
	}
	str, ok := raw.(string)
	if !ok || strings.TrimSpace(str) == "" {
		return nil, nil
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(str), &fm); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, nil
}
