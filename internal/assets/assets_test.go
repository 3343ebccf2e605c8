package assets

import (
	"strings"
	"testing"
)

var pngHeader = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)

func TestCheckExt(t *testing.T) {
	for _, ext := range []string{".png", ".PNG", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".pdf"} {
		if err := CheckExt(ext); err != nil {
			t.Errorf("CheckExt(%q) = %v, want nil", ext, err)
		}
	}
	for _, ext := range []string{".txt", ".md", ".exe", "", "png"} {
		if err := CheckExt(ext); err == nil {
			t.Errorf("CheckExt(%q) = nil, want error", ext)
		}
	}
}

func TestExtForMIME(t *testing.T) {
	if got := ExtForMIME("image/png"); got != ".png" {
		t.Errorf("png ext = %q", got)
	}
	if got := ExtForMIME("image/png; charset=binary"); got != ".png" {
		t.Errorf("parameterized ext = %q", got)
	}
	if got := ExtForMIME("text/html"); got != "" {
		t.Errorf("html ext = %q, want empty", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"diagram.png", "diagram.png"},
		{"../../etc/passwd", "passwd"},
		{"my file (1).png", "my_file__1_.png"},
		{"über.png", "_ber.png"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	// Degenerate names get a generated replacement instead of an empty string.
	if got := SanitizeName("."); got == "" || got == "." {
		t.Errorf("SanitizeName(\".\") = %q, want generated name", got)
	}
}

func TestCheckContent(t *testing.T) {
	if err := CheckContent(pngHeader, ".png"); err != nil {
		t.Errorf("png content rejected: %v", err)
	}
	if err := CheckContent(pngHeader, ".gif"); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("png-as-gif err = %v, want mismatch", err)
	}

	jpeg := append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 16)...)
	for _, ext := range []string{".jpg", ".jpeg"} {
		if err := CheckContent(jpeg, ext); err != nil {
			t.Errorf("jpeg content rejected for %s: %v", ext, err)
		}
	}
}

func TestCheckContent_SVG(t *testing.T) {
	if err := CheckContent([]byte(`<?xml version="1.0"?><svg xmlns="x"></svg>`), ".svg"); err != nil {
		t.Errorf("valid svg rejected: %v", err)
	}
	if err := CheckContent([]byte("just text"), ".svg"); err == nil {
		t.Error("expected error for svg without <svg tag")
	}
}
