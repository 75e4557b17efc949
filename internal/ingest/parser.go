package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

const (
	KindText = "text"
	KindCode = "code"
)

var ErrUnsupported = errors.New("unsupported file type")

var codeExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".java": {}, ".kt": {},
	".c": {}, ".h": {}, ".cc": {}, ".cpp": {}, ".hpp": {}, ".cs": {}, ".rs": {}, ".rb": {},
	".php": {}, ".swift": {}, ".scala": {}, ".sh": {}, ".sql": {}, ".lua": {}, ".r": {},
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".rst": {}, ".csv": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".html": {},
}

type Parsed struct {
	Title      string
	SourceName string
	Kind       string
	Raw        []byte
	Text       string
}

func ParseFile(path string) (*Parsed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseBytes(filepath.Base(path), raw)
}

// ParseBytes extracts text from an artifact held in memory, choosing the
// decoder from the file name's extension.
func ParseBytes(name string, raw []byte) (*Parsed, error) {
	ext := strings.ToLower(filepath.Ext(name))
	kind := KindText
	var text string
	var err error
	switch ext {
	case ".docx":
		text, err = parseDOCX(raw)
	case ".pdf":
		text, err = parsePDF(raw)
	default:
		if _, ok := codeExtensions[ext]; ok {
			kind = KindCode
			text = string(raw)
		} else if _, ok := textExtensions[ext]; ok {
			text = string(raw)
		} else {
			return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
		}
	}
	if err != nil {
		return nil, err
	}

	text = Normalize(text, kind)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text in %s", name)
	}
	return &Parsed{
		Title:      strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		SourceName: filepath.Base(name),
		Kind:       kind,
		Raw:        raw,
		Text:       text,
	}, nil
}

// KindFor guesses a submission kind from a file name, defaulting to text.
func KindFor(name string) string {
	if _, ok := codeExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return KindCode
	}
	return KindText
}

// Normalize repairs encoding, applies NFC and tidies whitespace. Code keeps
// its indentation; prose lines are collapsed.
func Normalize(text, kind string) string {
	text = strings.ToValidUTF8(text, "\uFFFD")
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if kind == KindCode {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
		return strings.Trim(strings.Join(lines, "\n"), "\n")
	}
	return normalizeWhitespace(text)
}

func parseDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return "", fmt.Errorf("open document.xml: %w", openErr)
			}
			defer rc.Close()
			xmlData, err = io.ReadAll(rc)
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if len(xmlData) == 0 {
		return "", fmt.Errorf("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			if t.Name.Local == "p" && b.Len() > 0 {
				b.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func parsePDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return b.String(), nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	return strings.Join(out, "\n")
}
