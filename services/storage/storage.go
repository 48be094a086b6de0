package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// StorageService stores message attachments and returns their public URLs.
type StorageService interface {
	// UploadImage stores an image given as a remote URL or a base64 data URI.
	UploadImage(ctx context.Context, source, destFolder string) (string, error)
	DeleteFile(ctx context.Context, publicID string) error
}

// Uploader is the part of the Cloudinary upload API the service calls; *uploader.API satisfies it.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// StorageServiceImpl implements StorageService on Cloudinary.
type StorageServiceImpl struct {
	upload    Uploader
	cloudName string
	logger    *zap.Logger
}

// NewStorageService creates a Cloudinary-backed StorageService.
func NewStorageService(cld *cloudinary.Cloudinary, cloudName string, logger *zap.Logger) StorageService {
	return NewStorageServiceWithUploader(&cld.Upload, cloudName, logger)
}

func NewStorageServiceWithUploader(up Uploader, cloudName string, logger *zap.Logger) *StorageServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("initializing storage service", zap.String("cloudName", cloudName))
	return &StorageServiceImpl{upload: up, cloudName: cloudName, logger: logger}
}

// UploadImage uploads the image into destFolder and returns its secure URL.
func (s *StorageServiceImpl) UploadImage(ctx context.Context, source, destFolder string) (string, error) {
	if !isUploadable(source) {
		return "", fmt.Errorf("StorageServiceImpl: unsupported image source")
	}
	result, err := s.upload.Upload(ctx, source, uploader.UploadParams{
		Folder:       destFolder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("StorageServiceImpl: failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("StorageServiceImpl: upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("StorageServiceImpl: no secure URL returned")
	}
	s.logger.Debug("image uploaded", zap.String("publicID", result.PublicID))
	return result.SecureURL, nil
}

// DeleteFile deletes a file from Cloudinary given its public ID.
func (s *StorageServiceImpl) DeleteFile(ctx context.Context, publicID string) error {
	if _, err := s.upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("StorageServiceImpl: failed to delete file: %w", err)
	}
	return nil
}

// isUploadable accepts remote URLs and data URIs; local paths are never read on behalf of a caller.
func isUploadable(source string) bool {
	return strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "data:image/")
}
