package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

// problemDocumentTypes maps accepted document content types to their file extension
var problemDocumentTypes = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
}

// Presigner issues time-limited upload URLs for object keys
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PublicURL(key string) string
}

// S3Presigner presigns PUT requests against an S3 bucket
type S3Presigner struct {
	client   *s3.PresignClient
	bucket   string
	region   string
	endpoint string
}

// S3Options configures the S3 presigner. Static keys and a custom endpoint are optional;
// without keys the default AWS credential chain is used.
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// NewS3Presigner creates a presigner for the configured bucket
func NewS3Presigner(ctx context.Context, opts S3Options) (*S3Presigner, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Presigner{
		client:   s3.NewPresignClient(client),
		bucket:   opts.Bucket,
		region:   opts.Region,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
	}, nil
}

// PresignPut returns a URL the client can PUT the object to
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return req.URL, nil
}

// PublicURL returns where the object is readable after upload
func (p *S3Presigner) PublicURL(key string) string {
	if p.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}

// UploadService hands out upload URLs for problem statement documents
type UploadService struct {
	presigner Presigner
	events    EventStore
	regs      RegistrationStore
}

// NewUploadService creates a new upload service. A nil presigner disables uploads.
func NewUploadService(presigner Presigner, events EventStore, regs RegistrationStore) *UploadService {
	return &UploadService{presigner: presigner, events: events, regs: regs}
}

// UploadResponse is a presigned upload target
type UploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// ProblemUploadURL presigns an upload for a problem statement document of the caller's
// registration on a paid event
func (s *UploadService) ProblemUploadURL(ctx context.Context, eventID, userID, filename, contentType string) (*UploadResponse, error) {
	if s.presigner == nil {
		return nil, apperr.FailedPrecondition("File uploads are not configured")
	}

	ext, ok := problemDocumentTypes[contentType]
	if !ok {
		return nil, apperr.Invalid("contentType must be a PDF, PPTX or DOCX document")
	}
	if e := strings.ToLower(path.Ext(filename)); e != "" && e != ext {
		return nil, apperr.Invalid("file extension %s does not match content type", e)
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "Event not found", "failed to load event")
	}
	if !ev.IsPaid() {
		return nil, apperr.FailedPrecondition("This event does not take problem statements")
	}
	if _, err := s.regs.GetByEventAndUser(ctx, eventID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Forbidden("Only registered teams can upload problem statements")
		}
		return nil, apperr.Internal("failed to load registration", err)
	}

	key := fmt.Sprintf("problem-statements/%s/%s/%s%s", eventID, userID, uuid.New().String(), ext)
	url, err := s.presigner.PresignPut(ctx, key, contentType, uploadURLExpiry)
	if err != nil {
		return nil, apperr.Internal("failed to generate upload URL", err)
	}

	return &UploadResponse{
		UploadURL: url,
		FileURL:   s.presigner.PublicURL(key),
		Key:       key,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}
