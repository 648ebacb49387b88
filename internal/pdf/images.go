package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/tsawler/tabula/reader"

	"github.com/spherical/manual-rag/internal/domain"
)

// PNGMIMEType is the only format sent to vision providers and written to disk.
const PNGMIMEType = "image/png"

// EncodePNG encodes img losslessly and attaches its base64 form.
func EncodePNG(img image.Image) (*domain.EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, domain.ImageError("failed to encode PNG", err)
	}
	b := img.Bounds()
	return newEncoded(buf.Bytes(), b.Dx(), b.Dy()), nil
}

func newEncoded(data []byte, width, height int) *domain.EncodedImage {
	return &domain.EncodedImage{
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: PNGMIMEType,
		Width:    width,
		Height:   height,
	}
}

// embeddedToPNG converts an XObject image to PNG. JPEG streams come back from
// the reader undecoded, everything else as raw samples.
func embeddedToPNG(img reader.PageImage) (*domain.EncodedImage, error) {
	switch img.Filter {
	case "DCTDecode", "DCT":
		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, domain.ImageError(fmt.Sprintf("failed to decode JPEG image %s", img.Name), err)
		}
		return EncodePNG(decoded)
	case "JPXDecode", "JBIG2Decode":
		return nil, domain.ImageError(fmt.Sprintf("unsupported image filter %s for %s", img.Filter, img.Name), nil)
	}

	data, err := img.ToPNG()
	if err != nil {
		return nil, domain.ImageError(fmt.Sprintf("failed to convert image %s", img.Name), err)
	}
	return newEncoded(data, img.Width, img.Height), nil
}
