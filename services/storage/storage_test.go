package storage

import (
	"context"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct{ mock.Mock }

func (m *MockUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	args := m.Called(ctx, file, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploader.UploadResult), args.Error(1)
}

func (m *MockUploader) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploader.DestroyResult), args.Error(1)
}

func TestUploadImageReturnsSecureURL(t *testing.T) {
	up := new(MockUploader)
	svc := NewStorageServiceWithUploader(up, "demo", nil)

	src := "data:image/png;base64,iVBORw0KGgo="
	up.On("Upload", mock.Anything, src, mock.MatchedBy(func(p uploader.UploadParams) bool {
		return p.Folder == "pawhub/messages"
	})).Return(&uploader.UploadResult{PublicID: "pawhub/messages/x", SecureURL: "https://res.cloudinary.com/demo/x.png"}, nil)

	url, err := svc.UploadImage(context.Background(), src, "pawhub/messages")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/x.png", url)
}

func TestUploadImageRejectsLocalPaths(t *testing.T) {
	up := new(MockUploader)
	svc := NewStorageServiceWithUploader(up, "demo", nil)

	_, err := svc.UploadImage(context.Background(), "/etc/passwd", "f")
	assert.Error(t, err)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadImageSurfacesRejection(t *testing.T) {
	up := new(MockUploader)
	svc := NewStorageServiceWithUploader(up, "demo", nil)

	res := &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}
	up.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(res, nil)

	_, err := svc.UploadImage(context.Background(), "https://example.com/a.png", "f")
	assert.ErrorContains(t, err, "Invalid image file")
}
