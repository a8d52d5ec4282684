package assets

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary is the Backend for a Cloudinary account.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary builds a client from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are not configured")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, folder string) (Asset, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return Asset{}, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return Asset{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, resp.Error.Message)
	}
	if resp.Result != "ok" {
		return fmt.Errorf("cloudinary destroy %s: result %q", publicID, resp.Result)
	}
	return nil
}

// Unconfigured is used when no asset host credentials are set. Uploads fail
// with a clear reason and deletions are no-ops.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, io.Reader, string) (Asset, error) {
	return Asset{}, &UploadError{Reason: "image hosting is not configured"}
}

func (Unconfigured) Destroy(context.Context, string) error { return nil }
