package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// pngData carries the PNG signature so content sniffing sees image/png.
var pngData = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func callUpload(t *testing.T, srv *Server, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = "upload_asset"
	req.Params.Arguments = args
	res, err := srv.uploadAsset(context.Background(), req)
	if err != nil {
		t.Fatalf("upload_asset error: %v", err)
	}
	return res
}

func TestUploadAsset_DataURI(t *testing.T) {
	srv, store := testServer(t)

	r := callUpload(t, srv, map[string]interface{}{
		"url":      dataURI("image/png", pngData),
		"filename": "chart.png",
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}

	var out uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.SavedPath != "/attachments/chart.png" {
		t.Errorf("savedPath = %q", out.SavedPath)
	}
	if out.MarkdownImage != "![chart.png](/attachments/chart.png)" {
		t.Errorf("markdownImage = %q", out.MarkdownImage)
	}

	data, err := store.Read("attachments/chart.png")
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if len(data) != len(pngData) {
		t.Errorf("stored %d bytes, want %d", len(data), len(pngData))
	}
}

func TestUploadAsset_PDFGetsLinkMarkdown(t *testing.T) {
	srv, _ := testServer(t)
	pdf := append([]byte("%PDF-1.4\n"), make([]byte, 16)...)

	r := callUpload(t, srv, map[string]interface{}{
		"url":      dataURI("application/pdf", pdf),
		"filename": "paper.pdf",
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}

	var out uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.MarkdownImage != "[paper.pdf](/attachments/paper.pdf)" {
		t.Errorf("pdf markdown = %q, want a plain link", out.MarkdownImage)
	}
}

func TestUploadAsset_GeneratedFilename(t *testing.T) {
	srv, _ := testServer(t)
	gif := append([]byte("GIF89a"), make([]byte, 16)...)

	r := callUpload(t, srv, map[string]interface{}{
		"url": dataURI("image/gif", gif),
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}

	var out uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(out.SavedPath, "/attachments/") || !strings.HasSuffix(out.SavedPath, ".gif") {
		t.Errorf("savedPath = %q, want generated .gif name under /attachments/", out.SavedPath)
	}
}

func TestUploadAsset_DuplicateRejected(t *testing.T) {
	srv, _ := testServer(t)
	args := map[string]interface{}{
		"url":      dataURI("image/png", pngData),
		"filename": "twice.png",
	}

	if r := callUpload(t, srv, args); r.IsError {
		t.Fatalf("first upload failed: %s", resultText(r))
	}
	r := callUpload(t, srv, args)
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("second upload = %q, want already-exists error", resultText(r))
	}
}

func TestUploadAsset_ExtensionMismatch(t *testing.T) {
	srv, _ := testServer(t)

	// PNG bytes declared as a GIF must be rejected by content sniffing.
	r := callUpload(t, srv, map[string]interface{}{
		"url":      dataURI("image/png", pngData),
		"filename": "fake.gif",
	})
	if !r.IsError || !strings.Contains(resultText(r), "does not match extension") {
		t.Errorf("result = %q, want content mismatch error", resultText(r))
	}
}

func TestUploadAsset_UnsupportedExtension(t *testing.T) {
	srv, _ := testServer(t)

	r := callUpload(t, srv, map[string]interface{}{
		"url":      dataURI("image/png", pngData),
		"filename": "script.txt",
	})
	if !r.IsError || !strings.Contains(resultText(r), "unsupported file extension") {
		t.Errorf("result = %q, want unsupported extension error", resultText(r))
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, ext, err := decodeDataURI(dataURI("image/png", pngData))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ext != ".png" {
		t.Errorf("ext = %q, want .png", ext)
	}
	if len(data) != len(pngData) {
		t.Errorf("decoded %d bytes, want %d", len(data), len(pngData))
	}

	if _, _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Error("expected error for missing comma")
	}
	if _, _, err := decodeDataURI("data:image/png,rawtext"); err == nil {
		t.Error("expected error for non-base64 URI")
	}
	if _, _, err := decodeDataURI("data:text/plain;base64,aGk="); err == nil {
		t.Error("expected error for unsupported MIME type")
	}
}

func TestFetchHTTP_RejectsUnsafeTargets(t *testing.T) {
	ctx := context.Background()

	if _, _, err := fetchHTTP(ctx, "ftp://example.com/a.png"); err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Errorf("ftp fetch err = %v, want scheme error", err)
	}
	if _, _, err := fetchHTTP(ctx, "http://127.0.0.1:9/a.png"); err == nil || !strings.Contains(err.Error(), "loopback") {
		t.Errorf("loopback fetch err = %v, want blocked host error", err)
	}
	if _, _, err := fetchHTTP(ctx, "http://169.254.169.254/latest/meta-data"); err == nil || !strings.Contains(err.Error(), "metadata") {
		t.Errorf("metadata fetch err = %v, want blocked host error", err)
	}
}

func TestCheckBlockedHost(t *testing.T) {
	blocked := []string{
		"metadata.google.internal",
		"::1",         // IPv6 loopback
		"10.3.2.1",    // RFC 1918
		"192.168.1.5", // RFC 1918
		"169.254.8.8", // link-local
		"0.0.0.0",     // unspecified
	}
	for _, host := range blocked {
		if err := checkBlockedHost(host); err == nil {
			t.Errorf("checkBlockedHost(%q) = nil, want blocked", host)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	if got := filenameFromURL("https://example.com/img/photo.jpg?size=big", ".jpg"); got != "photo.jpg" {
		t.Errorf("got %q, want photo.jpg", got)
	}

	// Extension-less basename keeps its name, extension from content type.
	if got := filenameFromURL("https://example.com/chart", ".png"); got != "chart.png" {
		t.Errorf("got %q, want chart.png", got)
	}

	// No usable basename: falls back to a generated name with the
	// detected extension.
	got := filenameFromURL("https://example.com/", ".png")
	if !strings.HasSuffix(got, ".png") || len(got) <= len(".png") {
		t.Errorf("fallback name = %q, want generated .png name", got)
	}

	got = filenameFromURL("data:image/gif;base64,xyz", ".gif")
	if !strings.HasSuffix(got, ".gif") {
		t.Errorf("data URI name = %q, want .gif suffix", got)
	}
}
