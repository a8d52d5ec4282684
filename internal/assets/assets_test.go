package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	uploaded   [][]byte
	folders    []string
	destroyed  []string
	uploadErr  error
	destroyErr error
}

func (f *fakeBackend) Upload(_ context.Context, file io.Reader, folder string) (Asset, error) {
	if f.uploadErr != nil {
		return Asset{}, f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return Asset{}, err
	}
	f.uploaded = append(f.uploaded, data)
	f.folders = append(f.folders, folder)
	return Asset{URL: "https://res.example.com/image/upload/v1/" + folder + "/new.png", PublicID: folder + "/new"}, nil
}

func (f *fakeBackend) Destroy(_ context.Context, publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	return f.destroyErr
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestGateway(backend Backend, opts Options) *Gateway {
	return NewGateway(backend, opts, slog.New(slog.DiscardHandler))
}

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"cloudinary secure url", "https://res.cloudinary.com/demo/image/upload/v1712/portfolio_projects/abc123.png", "portfolio_projects/abc123", true},
		{"multiple dots keep text before the first", "https://res.example.com/x/archive.tar.gz", "portfolio_projects/archive", true},
		{"no extension", "https://res.example.com/x/noext", "portfolio_projects/noext", true},
		{"query string ignored", "https://res.example.com/x/pic.jpg?v=2", "portfolio_projects/pic", true},
		{"fragment ignored", "https://res.example.com/x/pic.webp#top", "portfolio_projects/pic", true},
		{"query containing slash", "https://res.example.com/x/pic.jpg?p=a/b.c", "portfolio_projects/pic", true},
		{"relative path", "/static/img/logo.svg", "portfolio_projects/logo", true},
		{"bare filename", "photo.jpeg", "portfolio_projects/photo", true},
		{"encoded name is decoded", "https://res.example.com/x/my%20pic.png", "portfolio_projects/my pic", true},
		{"trailing slash", "https://res.example.com/x/", "", false},
		{"dot file", "https://res.example.com/x/.hidden", "", false},
		{"host only", "https://res.example.com", "", false},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PublicIDFromURL(tt.url, DefaultFolder)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no folder", func(t *testing.T) {
		got, ok := PublicIDFromURL("https://h/x/a.png", "")
		assert.True(t, ok)
		assert.Equal(t, "a", got)
	})
}

func TestGateway_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("small image passes through unchanged", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{MaxWidth: 100})
		data := pngBytes(t, 10, 10)

		asset, err := g.Upload(ctx, bytes.NewReader(data), "shot.png")
		require.NoError(t, err)
		assert.Equal(t, "portfolio_projects/new", asset.PublicID)
		require.Len(t, backend.uploaded, 1)
		assert.Equal(t, data, backend.uploaded[0])
		assert.Equal(t, []string{DefaultFolder}, backend.folders)
	})

	t.Run("wide image is downsized", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{MaxWidth: 20})

		_, err := g.Upload(ctx, bytes.NewReader(pngBytes(t, 80, 40)), "wide.png")
		require.NoError(t, err)
		require.Len(t, backend.uploaded, 1)
		cfg, err := png.DecodeConfig(bytes.NewReader(backend.uploaded[0]))
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Width)
		assert.Equal(t, 10, cfg.Height)
	})

	t.Run("too large", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{MaxBytes: 16})

		_, err := g.Upload(ctx, bytes.NewReader(pngBytes(t, 10, 10)), "big.png")
		var uerr *UploadError
		require.ErrorAs(t, err, &uerr)
		assert.Contains(t, uerr.Reason, "larger than")
		assert.Empty(t, backend.uploaded)
	})

	t.Run("not an image", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{})

		_, err := g.Upload(ctx, strings.NewReader("hello, world"), "notes.txt")
		var uerr *UploadError
		require.ErrorAs(t, err, &uerr)
		assert.Empty(t, backend.uploaded)
	})

	t.Run("empty file", func(t *testing.T) {
		g := newTestGateway(&fakeBackend{}, Options{})
		_, err := g.Upload(ctx, strings.NewReader(""), "empty.png")
		var uerr *UploadError
		assert.ErrorAs(t, err, &uerr)
	})

	t.Run("backend failure", func(t *testing.T) {
		backend := &fakeBackend{uploadErr: errors.New("503 service unavailable")}
		g := newTestGateway(backend, Options{})

		_, err := g.Upload(ctx, bytes.NewReader(pngBytes(t, 4, 4)), "a.png")
		var uerr *UploadError
		require.ErrorAs(t, err, &uerr)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("unconfigured host", func(t *testing.T) {
		g := newTestGateway(Unconfigured{}, Options{})
		_, err := g.Upload(ctx, bytes.NewReader(pngBytes(t, 4, 4)), "a.png")
		var uerr *UploadError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "image hosting is not configured", uerr.Reason)
	})
}

func TestGateway_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("derives id and destroys", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{})
		g.Delete(ctx, "https://res.example.com/image/upload/v1/portfolio_projects/old.jpg")
		assert.Equal(t, []string{"portfolio_projects/old"}, backend.destroyed)
	})

	t.Run("empty url is a no-op", func(t *testing.T) {
		backend := &fakeBackend{}
		g := newTestGateway(backend, Options{})
		g.Delete(ctx, "")
		assert.Empty(t, backend.destroyed)
	})

	t.Run("backend failure is swallowed", func(t *testing.T) {
		backend := &fakeBackend{destroyErr: errors.New("timeout")}
		g := newTestGateway(backend, Options{Timeout: time.Second})
		assert.NotPanics(t, func() { g.Delete(ctx, "https://h/x/old.png") })
		assert.Equal(t, []string{"portfolio_projects/old"}, backend.destroyed)
	})
}
