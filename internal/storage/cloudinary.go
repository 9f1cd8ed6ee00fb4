package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores files as Cloudinary assets. Stored paths are the secure URLs.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	fileBytes, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	uploadResult, err := c.cld.Upload.Upload(ctx, fileBytes, uploader.UploadParams{
		PublicID:     strings.TrimSuffix(key, path.Ext(key)),
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if uploadResult.Error.Message != "" {
		return "", fmt.Errorf("failed to upload to Cloudinary: %s", uploadResult.Error.Message)
	}
	return uploadResult.SecureURL, nil
}

func (c *Cloudinary) URL(storedPath string) string { return storedPath }

func (c *Cloudinary) Delete(ctx context.Context, storedPath string) error {
	publicID := publicIDFromURL(storedPath)
	if publicID == "" {
		return nil
	}
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+/`)

// publicIDFromURL extracts "folder/name" from
// https://res.cloudinary.com/<cloud>/image/upload/v123/folder/name.jpg
func publicIDFromURL(u string) string {
	idx := strings.Index(u, "/upload/")
	if idx == -1 {
		return ""
	}
	rest := versionSegment.ReplaceAllString(u[idx+len("/upload/"):], "")
	return strings.TrimSuffix(rest, path.Ext(rest))
}
