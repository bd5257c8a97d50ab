package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// attachmentsDir is the vault subdirectory for uploaded assets, matching
// the REST /attachments routes.
const attachmentsDir = "attachments"

const maxAssetSize = 10 << 20 // 10 MB

var (
	assetExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true, ".pdf": true,
	}

	mimeToExt = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// asset is a fetched attachment before it is written to the vault.
type asset struct {
	data []byte
	ext  string // extension inferred from the MIME type, may be ""
}

type uploadResult struct {
	// Path is vault-relative, so the markdown reference below resolves
	// against the vault root.
	Path     string `json:"path"`
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

func (s *Server) uploadAsset(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		filename = v
	}

	var a asset
	if strings.HasPrefix(rawURL, "data:") {
		a, err = assetFromDataURI(rawURL)
	} else {
		a, err = assetFromURL(rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(a.data) > maxAssetSize {
		return mcp.NewToolResultError(fmt.Sprintf("asset too large: %d bytes (max %d)", len(a.data), maxAssetSize)), nil
	}

	if filename == "" {
		filename = defaultAssetName(rawURL, a.ext)
	}
	filename = cleanAssetName(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	if !assetExtensions[ext] {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported asset extension: %s (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)), nil
	}
	if err := sniffMatchesExt(a.data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := attachmentsDir + "/" + filename
	if _, statErr := s.store.Stat(savePath); statErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("asset already exists: %s", savePath)), nil
	}
	if err := s.store.Write(savePath, a.data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save asset: %v", err)), nil
	}

	out, _ := json.Marshal(uploadResult{
		Path:     savePath,
		URL:      "/" + savePath,
		Markdown: fmt.Sprintf("![%s](%s)", filename, savePath),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// assetFromDataURI decodes a data:[<mediatype>][;base64],<data> URI.
func assetFromDataURI(uri string) (asset, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, found := strings.Cut(rest, ",")
	if !found {
		return asset{}, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return asset{}, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return asset{}, fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext, ok := mimeToExt[mime]
	if !ok {
		return asset{}, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return asset{data: data, ext: ext}, nil
}

// assetFromURL downloads over http(s), refusing loopback and cloud
// metadata hosts at the initial request and on every redirect hop.
func assetFromURL(rawURL string) (asset, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return asset{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return asset{}, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := blockedHost(parsed.Hostname()); err != nil {
		return asset{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return blockedHost(req.URL.Hostname())
		},
	}

	resp, err := client.Get(rawURL) //nolint:noctx
	if err != nil {
		return asset{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return asset{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return asset{}, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return asset{}, fmt.Errorf("asset too large: exceeds %d bytes", maxAssetSize)
	}

	ct := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	return asset{data: data, ext: mimeToExt[ct]}, nil
}

// blockedHost rejects loopback and cloud metadata addresses.
func blockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// defaultAssetName derives a filename from the source URL, falling back
// to a fresh UUID with the detected extension.
func defaultAssetName(rawURL, detectedExt string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	ext := detectedExt
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}

// cleanAssetName strips path separators and unsafe characters.
func cleanAssetName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// sniffMatchesExt verifies the content matches the declared extension.
func sniffMatchesExt(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	sniffed := mimeToExt[strings.Split(detected, ";")[0]]

	switch ext {
	case ".jpg", ".jpeg":
		if sniffed != ".jpg" && sniffed != ".jpeg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if sniffed != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
