package blp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
)

// Codec adapts the package functions to the converter's decoder contract.
type Codec struct{}

func (Codec) Decode(r io.Reader) (image.Image, error) {
	return Decode(r)
}

var (
	selfTestOnce sync.Once
	selfTestErr  error
)

// SelfTest round-trips a tiny texture through Encode and Decode. The result is
// computed once per process.
func (Codec) SelfTest() error {
	selfTestOnce.Do(func() {
		selfTestErr = runSelfTest()
	})
	return selfTestErr
}

func runSelfTest() error {
	sample := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	sample.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})
	sample.SetNRGBA(1, 0, color.NRGBA{G: 0xff, A: 0xff})
	sample.SetNRGBA(0, 1, color.NRGBA{B: 0xff, A: 0xff})
	sample.SetNRGBA(1, 1, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80})

	var buf bytes.Buffer
	if err := Encode(&buf, sample); err != nil {
		return fmt.Errorf("blp self-test encode: %w", err)
	}
	got, err := DecodeBytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("blp self-test decode: %w", err)
	}
	if !bytes.Equal(got.Pix, sample.Pix) {
		return fmt.Errorf("blp self-test: decoded pixels differ")
	}
	return nil
}
