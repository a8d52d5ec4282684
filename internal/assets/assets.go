// Package assets forwards project images to the hosted-asset service and
// removes them again when a project drops its image.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultFolder is the folder project images are uploaded into.
const DefaultFolder = "portfolio_projects"

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_asset_uploads_total",
		Help: "Image uploads to the asset host by result.",
	}, []string{"result"})
	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_asset_deletes_total",
		Help: "Image deletions on the asset host by result.",
	}, []string{"result"})
)

// Asset is an uploaded image.
type Asset struct {
	URL      string
	PublicID string
}

// UploadError reports an upload the asset host rejected or could not receive.
// Reason is safe to show to the admin.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return "upload image: " + e.Reason + ": " + e.Err.Error()
	}
	return "upload image: " + e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

// Backend is the remote asset host.
type Backend interface {
	Upload(ctx context.Context, file io.Reader, folder string) (Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// Options bounds what the gateway accepts.
type Options struct {
	Folder   string
	MaxBytes int64
	MaxWidth int
	Timeout  time.Duration
}

// Gateway validates images and talks to the backend.
type Gateway struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// NewGateway builds a gateway. Zero options fall back to sane defaults.
func NewGateway(backend Backend, opts Options, logger *slog.Logger) *Gateway {
	if opts.Folder == "" {
		opts.Folder = DefaultFolder
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Gateway{backend: backend, opts: opts, logger: logger}
}

// Folder returns the upload folder public ids are namespaced under.
func (g *Gateway) Folder() string { return g.opts.Folder }

// Upload validates file, downsizes it when wider than MaxWidth and sends it to
// the backend. Every failure is an *UploadError.
func (g *Gateway) Upload(ctx context.Context, file io.Reader, filename string) (Asset, error) {
	asset, err := g.upload(ctx, file, filename)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return Asset{}, err
	}
	uploadsTotal.WithLabelValues("ok").Inc()
	return asset, nil
}

func (g *Gateway) upload(ctx context.Context, file io.Reader, filename string) (Asset, error) {
	data, err := io.ReadAll(io.LimitReader(file, g.opts.MaxBytes+1))
	if err != nil {
		return Asset{}, &UploadError{Reason: "could not read the uploaded file", Err: err}
	}
	if len(data) == 0 {
		return Asset{}, &UploadError{Reason: "the uploaded file is empty"}
	}
	if int64(len(data)) > g.opts.MaxBytes {
		return Asset{}, &UploadError{Reason: fmt.Sprintf("the image is larger than %d bytes", g.opts.MaxBytes)}
	}

	data, err = Normalize(data, filename, g.opts.MaxWidth)
	if err != nil {
		return Asset{}, &UploadError{Reason: "the file is not a supported image", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	asset, err := g.backend.Upload(ctx, bytes.NewReader(data), g.opts.Folder)
	if err != nil {
		var uerr *UploadError
		if errors.As(err, &uerr) {
			return Asset{}, uerr
		}
		return Asset{}, &UploadError{Reason: "the image host rejected the upload", Err: err}
	}
	if asset.URL == "" {
		return Asset{}, &UploadError{Reason: "the image host returned no URL"}
	}
	return asset, nil
}

// Delete removes the hosted image behind imageURL. It is best-effort: failures
// are logged and never returned, so the triggering mutation always proceeds.
func (g *Gateway) Delete(ctx context.Context, imageURL string) {
	if strings.TrimSpace(imageURL) == "" {
		return
	}
	publicID, ok := PublicIDFromURL(imageURL, g.opts.Folder)
	if !ok {
		g.logger.Warn("cannot derive asset id from image url", "image_url", imageURL)
		deletesTotal.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	if err := g.backend.Destroy(ctx, publicID); err != nil {
		g.logger.Warn("asset delete failed, leaving orphan", "public_id", publicID, "error", err)
		deletesTotal.WithLabelValues("error").Inc()
		return
	}
	deletesTotal.WithLabelValues("ok").Inc()
}

// PublicIDFromURL derives the removable id of a hosted image from its URL:
// the last path segment with everything from its first "." removed,
// namespaced under folder. Query strings and fragments are ignored.
//
//	https://res.cloudinary.com/demo/image/upload/v1/portfolio_projects/abc.png -> portfolio_projects/abc
//	https://host/x/archive.tar.gz -> portfolio_projects/archive
//	https://host/x/noext -> portfolio_projects/noext
//
// ok is false when the URL has no usable final segment (empty, trailing
// slash, or a segment that starts with ".").
func PublicIDFromURL(imageURL, folder string) (string, bool) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", false
	}
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return "", false
	}
	name := path.Base(p)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "/" {
		return "", false
	}
	if folder == "" {
		return name, true
	}
	return folder + "/" + name, true
}
