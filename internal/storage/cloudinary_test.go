package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/config"
	"ecomission/internal/models"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	failures int
	calls    int
	params   []uploader.UploadParams
	bodies   []string
}

func (f *fakeUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.calls++
	f.params = append(f.params, params)
	body, _ := io.ReadAll(file.(io.Reader))
	f.bodies = append(f.bodies, string(body))
	if f.calls <= f.failures {
		return nil, errors.New("503 from upstream")
	}
	return &uploader.UploadResult{PublicID: params.PublicID}, nil
}

func testConfig() config.CloudinaryConfig {
	return config.CloudinaryConfig{
		Folder:         "missions",
		MaxFileSize:    16,
		MaxRetries:     2,
		UploadTimeout:  5 * time.Second,
		SignedURLTTL:   10 * time.Minute,
		AllowedFormats: []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "heic", "webp"},
	}
}

func TestMetadataForBuildsUUIDKey(t *testing.T) {
	s := New(&fakeUploader{}, nil, nil, testConfig(), zap.NewNop())

	meta, err := s.MetadataFor(&models.Artifact{FileName: "my bus ticket.JPG", ContentType: "image/jpeg", Data: []byte("photo")})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(meta.Key, "_my_bus_ticket.JPG"), meta.Key)
	assert.Len(t, strings.SplitN(meta.Key, "_", 2)[0], 36)
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Equal(t, int64(5), meta.Size)
}

func TestMetadataForRejectsInvalidArtifacts(t *testing.T) {
	s := New(&fakeUploader{}, nil, nil, testConfig(), zap.NewNop())

	tests := []struct {
		name     string
		artifact *models.Artifact
		want     error
	}{
		{"empty", &models.Artifact{FileName: "a.jpg"}, ErrEmptyArtifact},
		{"no name", &models.Artifact{Data: []byte("x")}, ErrMissingFileName},
		{"bad extension", &models.Artifact{FileName: "proof.pdf", Data: []byte("x")}, ErrInvalidExtension},
		{"no extension", &models.Artifact{FileName: "proof", Data: []byte("x")}, ErrInvalidExtension},
		{"too large", &models.Artifact{FileName: "a.png", Data: make([]byte, 17)}, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.MetadataFor(tt.artifact)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}

func TestUploadArtifactRetriesTransientFailures(t *testing.T) {
	up := &fakeUploader{failures: 2}
	s := New(up, nil, nil, testConfig(), zap.NewNop())

	err := s.UploadArtifact(context.Background(), "abc_proof.jpg", []byte("photo"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, 3, up.calls)
	assert.Equal(t, "missions/abc_proof", up.params[0].PublicID)
	// every attempt must send the full body
	assert.Equal(t, []string{"photo", "photo", "photo"}, up.bodies)
}

func TestUploadArtifactGivesUpAfterMaxRetries(t *testing.T) {
	up := &fakeUploader{failures: 10}
	s := New(up, nil, nil, testConfig(), zap.NewNop())

	err := s.UploadArtifact(context.Background(), "abc_proof.jpg", []byte("photo"), "image/jpeg")
	require.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, 3, up.calls)
	assert.NotErrorIs(t, err, ErrInvalidArtifact)
}

func TestSignedURLForCachesURL(t *testing.T) {
	signs := 0
	signer := func(publicID string) (string, error) {
		signs++
		return "https://res.cloudinary.com/demo/image/upload/s--sig--/" + publicID, nil
	}
	urls := cache.NewMemoryCache(&cache.Config{TTL: time.Minute, MaxKeys: 10}, zap.NewNop())
	defer urls.Close()

	s := New(&fakeUploader{}, signer, urls, testConfig(), zap.NewNop())
	ctx := context.Background()

	first, err := s.SignedURLFor(ctx, "abc_proof.jpg")
	require.NoError(t, err)
	second, err := s.SignedURLFor(ctx, "abc_proof.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "missions/abc_proof")
	assert.Equal(t, 1, signs)
}

func TestSignedURLForWrapsSignerErrors(t *testing.T) {
	s := New(&fakeUploader{}, func(string) (string, error) { return "", errors.New("bad secret") }, nil, testConfig(), nil)

	_, err := s.SignedURLFor(context.Background(), "k.jpg")
	assert.ErrorIs(t, err, ErrSignFailed)
}

func TestUnavailableStorage(t *testing.T) {
	u := NewUnavailable(testConfig())
	ctx := context.Background()

	_, err := u.MetadataFor(&models.Artifact{FileName: "a.webp", Data: []byte("x")})
	assert.NoError(t, err)
	assert.ErrorIs(t, u.UploadArtifact(ctx, "k", []byte("x"), "image/webp"), ErrStorageUnavailable)
	_, err = u.SignedURLFor(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestNewCloudinaryStorageRequiresCredentials(t *testing.T) {
	_, err := NewCloudinaryStorage(testConfig(), nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
