package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Photo is an uploaded person picture.
type Photo struct {
	Name     string
	MimeType string
	Data     []byte
}

// PhotoUploader stores a picture and returns its public URL.
type PhotoUploader interface {
	Upload(ctx context.Context, photo Photo) (string, error)
}

type CloudinaryPhotos struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryPhotos(cloudName, apiKey, apiSecret, folder string) (*CloudinaryPhotos, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryPhotos{cld: cld, folder: folder}, nil
}

func (s *CloudinaryPhotos) Upload(ctx context.Context, photo Photo) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(photo.Data), uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return result.SecureURL, nil
}
