package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_Plain(t *testing.T) {
	e := NewExtractor()
	text, err := e.ExtractBytes([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text=%q", text)
	}
}

func TestExtractBytes_PlainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	text, err := e.ExtractBytes([]byte{'o', 'k', 0xff}, "txt")
	if err != nil {
		t.Fatal(err)
	}
	if text == "" {
		t.Error("expected sanitized text")
	}
}

func TestExtractBytes_UnsupportedFormat(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".xlsx", ".png", "", ".md"} {
		if _, err := e.ExtractBytes([]byte("data"), ext); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ext %q: expected ErrUnsupportedFormat, got %v", ext, err)
		}
	}
}

func TestExtractBytes_DOCX(t *testing.T) {
	e := NewExtractor()
	doc := `<w:document><w:body><w:p w:rsidR="x"><w:r><w:t>Hello</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve">DOCX world</w:t></w:r></w:p></w:body></w:document>`
	text, err := e.ExtractBytes(docxBytes(t, doc), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello DOCX world" {
		t.Errorf("text=%q", text)
	}
}

func TestExtractBytes_DOCXEmpty(t *testing.T) {
	e := NewExtractor()
	doc := `<w:document><w:body></w:body></w:document>`
	if _, err := e.ExtractBytes(docxBytes(t, doc), ".docx"); !errors.Is(err, ErrExtractionEmpty) {
		t.Errorf("expected ErrExtractionEmpty, got %v", err)
	}
}

func TestExtractBytes_DOCXNotAZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("plainly not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtractBytes_PDFGarbage(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", "pdf", ".docx", ".PDF"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q)=false", ext)
		}
	}
	for _, ext := range []string{".xlsx", "doc", ""} {
		if Supported(ext) {
			t.Errorf("Supported(%q)=true", ext)
		}
	}
}
