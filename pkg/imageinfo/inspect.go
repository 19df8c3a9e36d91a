// SPDX-License-Identifier: MPL-2.0

// Package imageinfo reads pixel dimensions and color depth from image headers
// without decoding pixel data.
package imageinfo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// Color modes. Names follow the common imaging-library convention so the
// bit-depth table reads the same as the report template expects.
const (
	ModeUnknown Mode = ""
	Mode1       Mode = "1"
	ModeL       Mode = "L"
	ModeP       Mode = "P"
	ModeRGB     Mode = "RGB"
	ModeRGBA    Mode = "RGBA"
	ModeCMYK    Mode = "CMYK"
	ModeYCbCr   Mode = "YCbCr"
	ModeI       Mode = "I"
	ModeF       Mode = "F"
	// ModeLA, ModeLAB and ModeI16 have no entry in the bit-depth table.
	ModeLA  Mode = "LA"
	ModeLAB Mode = "LAB"
	ModeI16 Mode = "I;16"
)

// ErrUndecodable signals that the file is not an image in a supported format.
var ErrUndecodable = errors.New("image undecodable")

// bitsPerMode is the fixed mode to bit-depth table. Unlisted modes map to 0.
var bitsPerMode = map[Mode]int{
	Mode1:     1,
	ModeL:     8,
	ModeP:     8,
	ModeRGB:   24,
	ModeRGBA:  32,
	ModeCMYK:  32,
	ModeYCbCr: 24,
	ModeI:     32,
	ModeF:     32,
}

type (
	// Mode names an image color mode.
	Mode string

	// Info describes an image header.
	Info struct {
		Width  int
		Height int
		Format string
		Mode   Mode
		Bits   int
	}
)

// Bits returns the bit depth for m, or 0 when the mode is not in the table.
func (m Mode) Bits() int {
	return bitsPerMode[m]
}

// Measure formats the record measure field, e.g. "640x480 24bits".
func (i Info) Measure() string {
	return fmt.Sprintf("%dx%d %dbits", i.Width, i.Height, i.Bits)
}

// Inspect opens path and reads its image header.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	defer f.Close()
	return Read(f)
}

// Read reads an image header from r. PNG, ICO, PSD and JPEG 2000 headers
// are parsed directly because their color mode depends on header fields the
// standard decoders do not report. Other formats go through
// image.DecodeConfig.
func Read(r io.Reader) (Info, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(sniffLen) //nolint:errcheck // short files fall through to DecodeConfig
	for _, h := range headerReaders {
		if bytes.HasPrefix(magic, h.magic) {
			info, err := h.read(br)
			if err != nil {
				return Info{}, fmt.Errorf("%w: %s: %w", ErrUndecodable, h.format, err)
			}
			info.Format = h.format
			info.Bits = info.Mode.Bits()
			return info, nil
		}
	}

	cfg, format, err := image.DecodeConfig(br)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	mode := ModeOf(cfg.ColorModel)
	if p, ok := cfg.ColorModel.(color.Palette); ok && format == "bmp" {
		mode = bmpPaletteMode(p)
	}
	return Info{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Mode:   mode,
		Bits:   mode.Bits(),
	}, nil
}

// ModeOf maps a decoder color model to a mode. Decoders report opaque
// truecolor as RGBA (or RGBA64) and alpha truecolor as NRGBA. JPEG and
// lossy WebP report YCbCr; they open as RGB.
func ModeOf(m color.Model) Mode {
	switch m {
	case color.GrayModel:
		return ModeL
	case color.Gray16Model:
		return ModeI
	case color.RGBAModel, color.RGBA64Model, color.YCbCrModel:
		return ModeRGB
	case color.NRGBAModel, color.NRGBA64Model, color.NYCbCrAModel:
		return ModeRGBA
	case color.CMYKModel:
		return ModeCMYK
	}
	if _, ok := m.(color.Palette); ok {
		return ModeP
	}
	return ModeUnknown
}

// bmpPaletteMode applies the BMP greyscale rule: a black and white
// two-entry palette is bilevel, and an identity grey ramp is L.
func bmpPaletteMode(p color.Palette) Mode {
	if len(p) == 0 || len(p) > 256 {
		return ModeP
	}
	for i, c := range p {
		want := uint32(i)
		if len(p) == 2 {
			want = uint32(i * 255)
		}
		r, g, b, _ := c.RGBA()
		if r>>8 != want || g>>8 != want || b>>8 != want {
			return ModeP
		}
	}
	if len(p) == 2 {
		return Mode1
	}
	return ModeL
}
