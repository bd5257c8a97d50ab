package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbirkeland/eihwaz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, v := testutil.TestVault(t)
	// The store behind the vault is only needed for asset uploads;
	// upload tests build their own server with a real store.
	return New(v, nil)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "get_forward_links":
		result, err = srv.getForwardLinks(ctx, req)
	case "analyze_links":
		result, err = srv.analyzeLinks(ctx, req)
	case "vault_statistics":
		result, err = srv.vaultStatistics(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_note_contract":
		result, err = srv.getNoteContract(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"path":        "test",
		"content":     "# Test\nHello",
		"frontmatter": "title: Test Note\ntags: [demo]",
	})
	if text := resultText(r); text != "created: test.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{
		"path": "test",
	})
	text := resultText(r)
	if !strings.Contains(text, `"title": "Test Note"`) {
		t.Errorf("read result missing title: %s", text)
	}
	// The payload is JSON, so the body newline arrives escaped.
	if !strings.Contains(text, `"body": "# Test\nHello"`) {
		t.Errorf("read result missing body: %s", text)
	}
	if !strings.Contains(text, `"demo"`) {
		t.Errorf("read result missing tag: %s", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestUpdateNote(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "doc.md",
		"content": "first",
	})

	r := callTool(t, srv, "update_note", map[string]interface{}{
		"path":    "doc.md",
		"content": "second",
	})
	if text := resultText(r); text != "updated: doc.md" {
		t.Errorf("update result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "doc.md"})
	if !strings.Contains(resultText(r), "second") {
		t.Errorf("read after update = %s", resultText(r))
	}
}

func TestUpdateNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "update_note", map[string]interface{}{
		"path":    "ghost.md",
		"content": "x",
	})
	if !r.IsError {
		t.Error("expected error updating missing note")
	}
}

func TestDeleteNote(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "bye.md",
		"content": "farewell",
	})
	r := callTool(t, srv, "delete_note", map[string]interface{}{"path": "bye.md"})
	if text := resultText(r); text != "deleted: bye.md" {
		t.Errorf("delete result = %q", text)
	}
	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "bye.md"})
	if !r.IsError {
		t.Error("note still readable after delete")
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "espresso.md",
		"content": "pulling espresso shots #coffee",
	})
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "pour-over.md",
		"content": "slow pour over brewing #coffee",
	})

	r := callTool(t, srv, "search_notes", map[string]interface{}{
		"query": "espresso",
		"tags":  "coffee",
	})
	text := resultText(r)
	if !strings.Contains(text, "espresso.md") {
		t.Errorf("search result = %s", text)
	}
}

func TestLinkTools(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "a.md",
		"content": "links to [[b]]",
	})
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "b.md",
		"content": "plain",
	})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "b"})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
	r = callTool(t, srv, "get_forward_links", map[string]interface{}{"path": "a"})
	if text := resultText(r); text != "b.md" {
		t.Errorf("forward links = %q, want b.md", text)
	}
	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "a"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks for a = %q", text)
	}
}

func TestAnalyzeAndStatistics(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "solo.md",
		"content": "points at [[nothing here]]",
	})

	r := callTool(t, srv, "analyze_links", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "solo.md: nothing here") {
		t.Errorf("analysis missing broken link: %s", text)
	}

	r = callTool(t, srv, "vault_statistics", map[string]interface{}{})
	text = resultText(r)
	if !strings.Contains(text, `"total_notes": 1`) {
		t.Errorf("statistics = %s", text)
	}
}

func TestAdvancedToolsToggle(t *testing.T) {
	t.Setenv(AdvancedToolsEnv, "")
	if advancedToolsEnabled() {
		t.Error("advanced tools enabled with empty toggle")
	}
	t.Setenv(AdvancedToolsEnv, "1")
	if !advancedToolsEnabled() {
		t.Error("advanced tools disabled with toggle set")
	}
	t.Setenv(AdvancedToolsEnv, "true")
	if !advancedToolsEnabled() {
		t.Error("advanced tools disabled with toggle true")
	}
}

func TestListNotesTool(t *testing.T) {
	t.Setenv(AdvancedToolsEnv, "1")
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path": "top.md", "content": "a",
	})
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path": "folder/inner.md", "content": "b",
	})

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	if text := resultText(r); text != "folder/inner.md\ntop.md" {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_notes", map[string]interface{}{"folder": "folder"})
	if text := resultText(r); text != "folder/inner.md" {
		t.Errorf("filtered list = %q", text)
	}
}

func TestNoteContract(t *testing.T) {
	t.Setenv(AdvancedToolsEnv, "on")
	srv := testServer(t)
	r := callTool(t, srv, "get_note_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Note Format Contract") {
		t.Error("contract text missing")
	}
}

func pngDataURI() string {
	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake image payload")...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func TestUploadAssetDataURI(t *testing.T) {
	_, store, v := testutil.TestVaultWithStore(t)
	srv := New(v, store)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      pngDataURI(),
		"filename": "chart.png",
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"path":"attachments/chart.png"`) {
		t.Errorf("result missing vault path: %s", text)
	}
	if !strings.Contains(text, "![chart.png](attachments/chart.png)") {
		t.Errorf("result missing markdown reference: %s", text)
	}

	data, err := store.Read("attachments/chart.png")
	if err != nil {
		t.Fatalf("stored asset unreadable: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("stored bytes are not the uploaded PNG")
	}

	// A second upload to the same name is refused.
	r = callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      pngDataURI(),
		"filename": "chart.png",
	})
	if !r.IsError {
		t.Error("expected error for duplicate asset name")
	}
}

func TestUploadAssetRejectsMismatchedContent(t *testing.T) {
	_, store, v := testutil.TestVaultWithStore(t)
	srv := New(v, store)

	encoded := base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))
	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      "data:image/png;base64," + encoded,
		"filename": "fake.png",
	})
	if !r.IsError {
		t.Error("expected error for content that is not a PNG")
	}
}

func TestUploadAssetRejectsUnknownExtension(t *testing.T) {
	_, store, v := testutil.TestVaultWithStore(t)
	srv := New(v, store)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      pngDataURI(),
		"filename": "payload.exe",
	})
	if !r.IsError {
		t.Error("expected error for disallowed extension")
	}
}
