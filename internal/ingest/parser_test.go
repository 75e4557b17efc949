package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDOCX(t *testing.T) {
	raw := buildDOCX(t, `<w:document><w:body><w:p><w:r><w:t>Chapter 1</w:t></w:r></w:p><w:p><w:r><w:t>Hello world.</w:t></w:r></w:p></w:body></w:document>`)
	parsed, err := ParseBytes("essay.docx", raw)
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	if parsed.Text != "Chapter 1\nHello world." {
		t.Fatalf("unexpected text %q", parsed.Text)
	}
	if parsed.Kind != KindText || parsed.Title != "essay" {
		t.Fatalf("unexpected metadata %+v", parsed)
	}
}

func TestParseFileCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	src := "package main\r\n\r\nfunc main() {\r\n\tprintln(\"hi\")   \r\n}\r\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if parsed.Kind != KindCode {
		t.Fatalf("expected code kind, got %s", parsed.Kind)
	}
	if !strings.Contains(parsed.Text, "\n\tprintln(\"hi\")\n") {
		t.Fatalf("expected indentation preserved, got %q", parsed.Text)
	}
	if parsed.SourceName != "main.go" {
		t.Fatalf("unexpected source name %q", parsed.SourceName)
	}
}

func TestParseFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.exe")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	_, err := ParseFile(path)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported file type error, got %v", err)
	}
}

func TestParseBytesRejectsBlank(t *testing.T) {
	if _, err := ParseBytes("notes.txt", []byte(" \n\t ")); err == nil {
		t.Fatal("expected blank text to be rejected")
	}
}

func TestNormalizeComposesAndRepairs(t *testing.T) {
	decomposed := "cafe\u0301   au  lait\xff"
	got := Normalize(decomposed, KindText)
	if got != "caf\u00e9 au lait\uFFFD" {
		t.Fatalf("unexpected normalized text %q", got)
	}
}

func TestKindFor(t *testing.T) {
	if KindFor("solver.PY") != KindCode {
		t.Fatal("expected python to be code")
	}
	if KindFor("essay.pdf") != KindText {
		t.Fatal("expected pdf to be text")
	}
}

func buildDOCX(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<?xml version="1.0" encoding="UTF-8"?>` + bodyXML
	if _, err := f.Write([]byte(xml)); err != nil {
		t.Fatalf("write xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return b.Bytes()
}
