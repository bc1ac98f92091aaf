package blp

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// adobeUnknownTransform is an APP14 segment declaring transform 0, which makes
// image/jpeg hand back the four stored channels untouched (as inverted CMYK)
// instead of rejecting a 4-component stream without Adobe metadata.
var adobeUnknownTransform = []byte{
	0xff, 0xee, 0x00, 0x0e,
	'A', 'd', 'o', 'b', 'e',
	0x00, 0x64, // version
	0x00, 0x00, // flags0
	0x00, 0x00, // flags1
	0x00, // transform
}

// decodeJPEGContent joins the shared JPEG header with mip 0 and decodes the
// result. Channels are stored as B, G, R, A.
func decodeJPEGContent(h header, data []byte) (*image.NRGBA, error) {
	shared, err := jpegHeader(data, h.dataStart)
	if err != nil {
		return nil, err
	}
	mip, err := h.mip(data)
	if err != nil {
		return nil, err
	}
	stream := make([]byte, 0, len(shared)+len(mip)+len(adobeUnknownTransform))
	stream = append(stream, shared...)
	stream = append(stream, mip...)
	stream, err = injectAdobeSegment(stream)
	if err != nil {
		return nil, err
	}

	decoded, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("blp: jpeg content: %w", err)
	}
	cmyk, ok := decoded.(*image.CMYK)
	if !ok {
		return nil, fmt.Errorf("%w: jpeg content decoded as %T, want 4 channels", ErrUnsupported, decoded)
	}

	b := cmyk.Bounds()
	width := min(b.Dx(), h.width)
	height := min(b.Dy(), h.height)
	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	for y := 0; y < height; y++ {
		src := cmyk.Pix[y*cmyk.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			s := src[x*4 : x*4+4]
			d := dst[x*4 : x*4+4]
			d[0] = 0xff - s[2]
			d[1] = 0xff - s[1]
			d[2] = 0xff - s[0]
			d[3] = 0xff
			if h.alphaBits > 0 {
				d[3] = 0xff - s[3]
			}
		}
	}
	return img, nil
}

func injectAdobeSegment(stream []byte) ([]byte, error) {
	if len(stream) < 2 || stream[0] != 0xff || stream[1] != 0xd8 {
		return nil, fmt.Errorf("%w: jpeg content missing SOI marker", ErrFormat)
	}
	out := make([]byte, 0, len(stream)+len(adobeUnknownTransform))
	out = append(out, stream[:2]...)
	out = append(out, adobeUnknownTransform...)
	out = append(out, stream[2:]...)
	return out, nil
}
