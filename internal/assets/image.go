package assets

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Normalize checks that data decodes as an image and downsizes it to maxWidth
// when it is wider. Formats imaging cannot encode (webp) are passed through
// unchanged; so is everything when maxWidth is not positive.
func Normalize(data []byte, filename string, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return data, nil
	}

	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return data, nil
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
