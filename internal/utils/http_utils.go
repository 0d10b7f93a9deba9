package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ecomission/internal/models"

	"github.com/gorilla/mux"
)

// multipartOverhead is the room left for form fields next to the file part
const multipartOverhead = 1 << 20

// ErrFileTooLarge is returned when the request body exceeds the upload limit
var ErrFileTooLarge = errors.New("uploaded file exceeds the size limit")

// PathID parses the positive int64 URL parameter name
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// IsMultipart reports whether the request carries multipart/form-data
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// ReadArtifact reads the optional file part field into memory.
// It returns nil without error when the part is absent.
func ReadArtifact(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*models.Artifact, error) {
	if !IsMultipart(r) {
		return nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("failed to parse form data: %w", err)
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &models.Artifact{
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
