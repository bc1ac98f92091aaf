package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"blp-icon-converter/internal/blp"
)

func main() {
	inPath := flag.String("in", "", "input BLP path")
	outPath := flag.String("out", "", "output PNG path")
	size := flag.Int("size", 0, "rescale to NxN pixels (0 keeps the native size)")
	info := flag.Bool("info", false, "print the texture header and exit")
	flag.Parse()

	if *inPath != "" && *info {
		if err := printInfo(*inPath); err != nil {
			fmt.Fprintf(os.Stderr, "inspect blp: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if *inPath == "" || *outPath == "" || *size < 0 {
		fmt.Fprintln(os.Stderr, "usage: blp2png -in <input.blp> -out <output.png> [-size N] | -in <input.blp> -info")
		os.Exit(2)
	}

	img, err := decodeBLP(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode blp: %v\n", err)
		os.Exit(1)
	}
	if *size > 0 {
		img = resize(img, *size)
	}
	if err := writePNG(*outPath, img); err != nil {
		fmt.Fprintf(os.Stderr, "write png: %v\n", err)
		os.Exit(1)
	}
}

func printInfo(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := blp.Inspect(file)
	if err != nil {
		return err
	}
	fmt.Printf("BLP%d %s %dx%d alpha=%d\n", info.Version, info.Encoding, info.Width, info.Height, info.Alpha)
	return nil
}

func decodeBLP(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return blp.Decode(file)
}

func resize(src image.Image, size int) image.Image {
	if b := src.Bounds(); b.Dx() == size && b.Dy() == size {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
