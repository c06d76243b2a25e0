package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const s3Scheme = "s3://"

// AllowedResumeExtensions are the upload formats accepted for resumes.
var AllowedResumeExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// S3ObjectGetter is the part of the S3 client used to read resume objects.
type S3ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type StorageService interface {
	SaveFile(file *multipart.FileHeader, prefix string) (string, string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
	s3         S3ObjectGetter
}

// NewStorageService stores uploads under uploadPath. s3Client may be nil, in
// which case s3:// references cannot be opened.
func NewStorageService(uploadPath string, s3Client S3ObjectGetter) StorageService {
	return &storageService{
		uploadPath: uploadPath,
		s3:         s3Client,
	}
}

// NewS3Client loads the default AWS credential chain for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveFile(file *multipart.FileHeader, prefix string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !AllowedResumeExtensions[ext] {
		return "", "", fmt.Errorf("%w: %s", ErrResumeFormatUnsupported, ext)
	}

	uniqueFilename := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

// Open reads a resume reference: a local path or an s3://bucket/key URI.
func (s *storageService) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !strings.HasPrefix(ref, s3Scheme) {
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", ref, err)
		}
		return f, nil
	}

	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	if s.s3 == nil {
		return nil, fmt.Errorf("s3 storage is not configured for %s", ref)
	}

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return out.Body, nil
}

func parseS3Ref(ref string) (string, string, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 reference %q", ref)
	}
	return bucket, key, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
