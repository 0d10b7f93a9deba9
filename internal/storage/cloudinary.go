// Package storage keeps submitted proof photos and mission images in Cloudinary.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/config"
	"ecomission/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Validation errors. Any other error from this package is an infrastructure failure.
var (
	ErrInvalidArtifact    = errors.New("invalid artifact")
	ErrMissingFileName    = fmt.Errorf("%w: file name is required", ErrInvalidArtifact)
	ErrInvalidExtension   = fmt.Errorf("%w: file extension not allowed", ErrInvalidArtifact)
	ErrFileTooLarge       = fmt.Errorf("%w: file size exceeds limit", ErrInvalidArtifact)
	ErrEmptyArtifact      = fmt.Errorf("%w: file is empty", ErrInvalidArtifact)
	ErrUploadFailed       = errors.New("failed to upload file")
	ErrSignFailed         = errors.New("failed to sign file URL")
	ErrStorageUnavailable = errors.New("artifact storage is not configured")
)

// Uploader is the subset of the Cloudinary upload API used here
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// URLSigner returns a signed delivery URL for a public ID
type URLSigner func(publicID string) (string, error)

// CloudinaryStorage implements artifact storage on Cloudinary
type CloudinaryStorage struct {
	uploader Uploader
	sign     URLSigner
	urls     cache.Cache
	config   config.CloudinaryConfig
	logger   *zap.Logger
}

// NewCloudinaryStorage connects to Cloudinary with the configured credentials.
// urls may be nil, in which case signed URLs are generated on every call.
func NewCloudinaryStorage(cfg config.CloudinaryConfig, urls cache.Cache, logger *zap.Logger) (*CloudinaryStorage, error) {
	if !cfg.Configured() {
		return nil, ErrStorageUnavailable
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	signer := func(publicID string) (string, error) {
		img, err := cld.Image(publicID)
		if err != nil {
			return "", err
		}
		img.Config.URL.SignURL = true
		return img.String()
	}

	return New(&cld.Upload, signer, urls, cfg, logger), nil
}

// New creates a storage over an explicit uploader and signer
func New(up Uploader, sign URLSigner, urls cache.Cache, cfg config.CloudinaryConfig, logger *zap.Logger) *CloudinaryStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}

	return &CloudinaryStorage{
		uploader: up,
		sign:     sign,
		urls:     urls,
		config:   cfg,
		logger:   logger,
	}
}

// MetadataFor validates the artifact and assigns its storage key
func (s *CloudinaryStorage) MetadataFor(artifact *models.Artifact) (*models.ArtifactMetadata, error) {
	return describe(artifact, s.config)
}

// UploadArtifact stores data under key, retrying transient failures
func (s *CloudinaryStorage) UploadArtifact(ctx context.Context, key string, data []byte, contentType string) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
	defer cancel()

	params := uploader.UploadParams{
		PublicID:     s.publicID(key),
		ResourceType: "image",
		Overwrite:    ptrBool(false),
	}

	var result *uploader.UploadResult
	operation := func() error {
		var opErr error
		result, opErr = s.uploader.Upload(ctx, bytes.NewReader(data), params)
		if opErr == nil && result != nil && result.Error.Message != "" {
			opErr = errors.New(result.Error.Message)
		}
		return opErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = s.config.UploadTimeout / 2

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.config.MaxRetries)), ctx),
		func(err error, d time.Duration) {
			s.logger.Warn("Upload attempt failed",
				zap.String("key", key),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		s.logger.Error("All upload attempts failed",
			zap.String("key", key),
			zap.Int("max_retries", s.config.MaxRetries),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.logger.Info("Artifact uploaded",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
		zap.String("public_id", result.PublicID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// SignedURLFor returns a signed delivery URL for key, reusing a cached one for SignedURLTTL
func (s *CloudinaryStorage) SignedURLFor(ctx context.Context, key string) (string, error) {
	cacheKey := "signed-url:" + key
	if s.urls != nil && s.config.SignedURLTTL > 0 {
		if raw, ok := s.urls.Get(ctx, cacheKey); ok {
			return string(raw), nil
		}
	}

	url, err := s.sign(s.publicID(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignFailed, err)
	}

	if s.urls != nil && s.config.SignedURLTTL > 0 {
		if err := s.urls.Set(ctx, cacheKey, []byte(url), s.config.SignedURLTTL); err != nil {
			s.logger.Warn("Failed to cache signed URL", zap.String("key", key), zap.Error(err))
		}
	}
	return url, nil
}

// publicID maps a storage key to the Cloudinary public ID, which carries no extension
func (s *CloudinaryStorage) publicID(key string) string {
	id := strings.TrimSuffix(key, path.Ext(key))
	if s.config.Folder == "" {
		return id
	}
	return s.config.Folder + "/" + id
}

// Unavailable validates artifacts but fails every storage call.
// It stands in when Cloudinary credentials are not configured.
type Unavailable struct {
	config config.CloudinaryConfig
}

// NewUnavailable creates the placeholder storage
func NewUnavailable(cfg config.CloudinaryConfig) *Unavailable {
	return &Unavailable{config: cfg}
}

func (u *Unavailable) MetadataFor(artifact *models.Artifact) (*models.ArtifactMetadata, error) {
	return describe(artifact, u.config)
}

func (u *Unavailable) UploadArtifact(ctx context.Context, key string, data []byte, contentType string) error {
	return ErrStorageUnavailable
}

func (u *Unavailable) SignedURLFor(ctx context.Context, key string) (string, error) {
	return "", ErrStorageUnavailable
}

// describe validates name, extension and size, then builds a <uuid>_<filename> key
func describe(artifact *models.Artifact, cfg config.CloudinaryConfig) (*models.ArtifactMetadata, error) {
	if artifact.IsEmpty() {
		return nil, ErrEmptyArtifact
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(artifact.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, ErrMissingFileName
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" || !slices.Contains(cfg.AllowedFormats, ext) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
	}

	if cfg.MaxFileSize > 0 && artifact.Size() > cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, artifact.Size(), cfg.MaxFileSize)
	}

	contentType := artifact.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(artifact.Data)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate artifact key: %w", err)
	}

	return &models.ArtifactMetadata{
		Key:         id.String() + "_" + strings.ReplaceAll(name, " ", "_"),
		ContentType: contentType,
		Size:        artifact.Size(),
	}, nil
}

func ptrBool(b bool) *bool {
	return &b
}
