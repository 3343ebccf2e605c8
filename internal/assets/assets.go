// Package assets defines what the engine accepts as a note attachment:
// the closed set of embeddable file types and the checks both upload
// surfaces (multipart HTTP and the MCP tool) apply before storing a file.
package assets

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Dir is the vault subdirectory attachments are stored in. Note bodies
// reference them as /attachments/<name>.
const Dir = "attachments"

// SniffLen is how many leading bytes CheckContent needs: 512 for MIME
// sniffing, 1024 for the SVG tag scan.
const SniffLen = 1024

// extByMIME maps accepted MIME types to their canonical extension.
var extByMIME = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

var allowedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".svg": true, ".pdf": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// CheckExt validates a filename extension (with leading dot, any case)
// against the accepted attachment types.
func CheckExt(ext string) error {
	if !allowedExt[strings.ToLower(ext)] {
		return fmt.Errorf("unsupported file extension: %s (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)
	}
	return nil
}

// ExtForMIME returns the canonical extension for a MIME type, or "" when
// the type is not accepted. Parameters after a semicolon are ignored.
func ExtForMIME(mime string) string {
	return extByMIME[strings.Split(mime, ";")[0]]
}

// SanitizeName strips directories and unsafe characters from a filename,
// generating a fresh name when nothing usable remains.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// CheckContent verifies that data matches the declared extension. SVG is
// text and gets a tag scan; everything else goes through content sniffing.
// Only the first SniffLen bytes of a stream are needed.
func CheckContent(data []byte, ext string) error {
	ext = strings.ToLower(ext)
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
	want := ExtForMIME(detected)

	switch ext {
	case ".jpg", ".jpeg":
		if want != ".jpg" && want != ".jpeg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if want != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
