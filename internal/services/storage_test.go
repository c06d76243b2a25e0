package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeS3 struct {
	objects map[string]string
	gets    []string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func multipartFile(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("resume", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["resume"][0]
}

func TestStorageSaveAndOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	storage := NewStorageService(filepath.Join(dir, "uploads"), nil)
	if err := storage.EnsureUploadDir(); err != nil {
		t.Fatalf("EnsureUploadDir: %v", err)
	}

	filename, path, err := storage.SaveFile(multipartFile(t, "CV.TXT", "Go developer"), "resume")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if !strings.HasPrefix(filename, "resume_") || !strings.HasSuffix(filename, ".txt") {
		t.Fatalf("filename = %q", filename)
	}
	if path != storage.GetFilePath(filename) {
		t.Fatalf("path = %q, want %q", path, storage.GetFilePath(filename))
	}

	rc, err := storage.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "Go developer" {
		t.Fatalf("content = %q", data)
	}

	if err := storage.DeleteFile(filename); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present after delete")
	}
}

func TestStorageRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	storage := NewStorageService(t.TempDir(), nil)
	_, _, err := storage.SaveFile(multipartFile(t, "cv.docx", "binary"), "resume")
	if !errors.Is(err, ErrResumeFormatUnsupported) {
		t.Fatalf("err = %v, want ErrResumeFormatUnsupported", err)
	}
}

func TestStorageOpensS3References(t *testing.T) {
	t.Parallel()

	client := &fakeS3{objects: map[string]string{"resumes/2026/cv.md": "# Jane\nRust engineer"}}
	storage := NewStorageService(t.TempDir(), client)

	rc, err := storage.Open(context.Background(), "s3://resumes/2026/cv.md")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !strings.Contains(string(data), "Rust engineer") {
		t.Fatalf("content = %q", data)
	}

	for _, ref := range []string{"s3://bucket-only", "s3:///key"} {
		if _, err := storage.Open(context.Background(), ref); err == nil {
			t.Fatalf("Open(%q) should fail", ref)
		}
	}

	if _, err := NewStorageService(t.TempDir(), nil).Open(context.Background(), "s3://resumes/2026/cv.md"); err == nil {
		t.Fatalf("s3 reference opened without a client")
	}
}

func TestResumeTextExtractor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txtPath := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(txtPath, []byte("  Jane Doe  \r\n\r\n  Python, 5 years  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := &fakeS3{objects: map[string]string{"bucket/cv.md": "## Skills\n\n- Go\n"}}
	core, logs := observer.New(zapcore.WarnLevel)
	extractor := NewResumeTextExtractor(NewStorageService(dir, client), zap.New(core))
	ctx := context.Background()

	text, err := extractor.ExtractText(ctx, txtPath)
	if err != nil {
		t.Fatalf("ExtractText txt: %v", err)
	}
	if text != "Jane Doe\nPython, 5 years" {
		t.Fatalf("txt text = %q", text)
	}

	text, err = extractor.ExtractText(ctx, "s3://bucket/cv.md")
	if err != nil {
		t.Fatalf("ExtractText md: %v", err)
	}
	if text != "## Skills\n- Go" {
		t.Fatalf("md text = %q", text)
	}

	text, err = extractor.ExtractText(ctx, filepath.Join(dir, "cv.docx"))
	if err != nil {
		t.Fatalf("ExtractText docx: %v", err)
	}
	if text != UnsupportedResumePlaceholder(".docx") {
		t.Fatalf("docx text = %q", text)
	}
	if logs.FilterMessage("resume format not extractable").Len() != 1 {
		t.Fatalf("unsupported format not logged")
	}

	if _, err := extractor.ExtractText(ctx, filepath.Join(dir, "missing.pdf")); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, _, err := extractPDFText([]byte("this is not a pdf")); err == nil {
		t.Fatalf("expected an error for non-PDF data")
	}
}
