package mcpserver

import (
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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/assets"
)

const maxAssetSize = 10 << 20 // 10 MB

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var data []byte
	var detectedExt string
	if strings.HasPrefix(rawURL, "data:") {
		data, detectedExt, err = decodeDataURI(rawURL)
	} else {
		data, detectedExt, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxAssetSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxAssetSize)), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, detectedExt)
	}
	filename = assets.SanitizeName(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	if err := assets.CheckExt(ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := assets.CheckContent(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := filepath.Join(assets.Dir, filename)

	if _, readErr := s.store.Read(savePath); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
	}

	if err := s.store.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save attachment: %v", err)), nil
	}

	urlPath := "/" + assets.Dir + "/" + filename
	markdown := fmt.Sprintf("![%s](%s)", filename, urlPath)
	if ext == ".pdf" {
		// PDFs render as links, not inline images.
		markdown = fmt.Sprintf("[%s](%s)", filename, urlPath)
	}
	out, _ := json.Marshal(uploadResult{
		SavedPath:     urlPath,
		MarkdownImage: markdown,
	})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	encoded := rest[commaIdx+1:]

	// The base64 marker is the last token of the mediatype per RFC 2397.
	meta, isBase64 := strings.CutSuffix(rest[:commaIdx], ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(meta, ";")[0]
	ext := assets.ExtForMIME(mime)
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// assetClient is shared by every upload so connections pool. The redirect
// policy re-validates each hop; a safe public URL may redirect into an
// internal address.
var assetClient = &http.Client{
	Timeout: 30 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects (max 5)")
		}
		return checkBlockedHost(req.URL.Hostname())
	},
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid request: %w", err)
	}

	resp, err := assetClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	// Fail before reading when the server announces an oversized body.
	if resp.ContentLength > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, maxAssetSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}

	return data, assets.ExtForMIME(resp.Header.Get("Content-Type")), nil
}

// checkBlockedHost rejects targets that resolve to loopback, private, or
// cloud metadata addresses. Every resolved address must pass; DNS can pair a
// public record with an internal one.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}

	for _, ip := range ips {
		switch {
		// AWS/GCP/Azure metadata endpoint.
		case ip.Equal(net.ParseIP("169.254.169.254")):
			return fmt.Errorf("blocked host: cloud metadata address %s", host)
		case ip.IsLoopback():
			return fmt.Errorf("blocked host: loopback address %s", host)
		case ip.IsPrivate():
			return fmt.Errorf("blocked host: private address %s", host)
		case ip.IsLinkLocalUnicast(), ip.IsUnspecified():
			return fmt.Errorf("blocked host: link-local address %s", host)
		}
	}
	return nil
}

// filenameFromURL derives a filename from the source URL. An extension-less
// basename keeps its readable name with the detected extension appended;
// anything unusable becomes a generated name.
func filenameFromURL(rawURL string, detectedExt string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" {
				if strings.Contains(base, ".") {
					return base
				}
				if detectedExt != "" {
					return base + detectedExt
				}
			}
		}
	}

	ext := detectedExt
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}
