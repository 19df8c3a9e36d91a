// SPDX-License-Identifier: MPL-2.0

package imageinfo

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// sniffLen covers the longest magic below.
	sniffLen = 16

	// maxICOSize bounds how much of an icon file is buffered.
	maxICOSize = 16 << 20

	// maxJP2Boxes bounds the box walk over a malformed file.
	maxJP2Boxes = 64
)

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
	icoMagic = []byte{0, 0, 1, 0}
	psdMagic = []byte("8BPS")
	jp2Magic = []byte("\x00\x00\x00\x0cjP  \r\n\x87\n")
	j2kMagic = []byte{0xff, 0x4f, 0xff, 0x51}

	errTruncated = errors.New("truncated header")
)

type headerReader struct {
	magic  []byte
	format string
	read   func(*bufio.Reader) (Info, error)
}

var headerReaders = []headerReader{
	{pngMagic, "png", readPNG},
	{icoMagic, "ico", readICO},
	{psdMagic, "psd", readPSD},
	{jp2Magic, "jpeg2000", readJP2},
	{j2kMagic, "jpeg2000", readJ2K},
}

func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errTruncated
	}
	return buf, nil
}

// readPNG reads the IHDR chunk. Bilevel is 1-bit greyscale only; palette
// images are P whatever their palette.
func readPNG(r *bufio.Reader) (Info, error) {
	h, err := readFull(r, 26)
	if err != nil {
		return Info{}, err
	}
	if string(h[12:16]) != "IHDR" {
		return Info{}, errors.New("missing IHDR chunk")
	}
	info := Info{
		Width:  int(binary.BigEndian.Uint32(h[16:20])),
		Height: int(binary.BigEndian.Uint32(h[20:24])),
	}
	depth, colorType := h[24], h[25]
	switch colorType {
	case 0:
		switch depth {
		case 1:
			info.Mode = Mode1
		case 16:
			info.Mode = ModeI
		default:
			info.Mode = ModeL
		}
	case 2:
		info.Mode = ModeRGB
	case 3:
		info.Mode = ModeP
	case 4:
		info.Mode = ModeLA
	case 6:
		info.Mode = ModeRGBA
	default:
		return Info{}, fmt.Errorf("unknown color type %d", colorType)
	}
	return info, nil
}

// readICO picks the largest entry, first in file order on ties. PNG
// entries report their own mode; bitmap entries open as RGBA once the AND
// mask is applied.
func readICO(r *bufio.Reader) (Info, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxICOSize))
	if err != nil {
		return Info{}, err
	}
	if len(data) < 6 {
		return Info{}, errTruncated
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 {
		return Info{}, errors.New("icon has no images")
	}
	if len(data) < 6+16*count {
		return Info{}, errTruncated
	}

	best, bestArea, offset := Info{}, -1, 0
	for i := range count {
		e := data[6+16*i : 6+16*(i+1)]
		w, h := int(e[0]), int(e[1])
		if w == 0 {
			w = 256
		}
		if h == 0 {
			h = 256
		}
		if w*h > bestArea {
			best, bestArea = Info{Width: w, Height: h, Mode: ModeRGBA}, w*h
			offset = int(binary.LittleEndian.Uint32(e[12:16]))
		}
	}

	if offset < len(data) && bytes.HasPrefix(data[offset:], pngMagic) {
		inner, err := readPNG(bufio.NewReader(bytes.NewReader(data[offset:])))
		if err != nil {
			return Info{}, err
		}
		return inner, nil
	}
	return best, nil
}

// readPSD reads the file header. An RGB document with exactly four
// channels carries alpha.
func readPSD(r *bufio.Reader) (Info, error) {
	h, err := readFull(r, 26)
	if err != nil {
		return Info{}, err
	}
	channels := binary.BigEndian.Uint16(h[12:14])
	info := Info{
		Height: int(binary.BigEndian.Uint32(h[14:18])),
		Width:  int(binary.BigEndian.Uint32(h[18:22])),
	}
	switch mode := binary.BigEndian.Uint16(h[24:26]); mode {
	case 0:
		info.Mode = Mode1
	case 1, 7, 8:
		info.Mode = ModeL
	case 2:
		info.Mode = ModeP
	case 3:
		info.Mode = ModeRGB
		if channels == 4 {
			info.Mode = ModeRGBA
		}
	case 4:
		info.Mode = ModeCMYK
	case 9:
		info.Mode = ModeLAB
	default:
		return Info{}, fmt.Errorf("unsupported color mode %d", mode)
	}
	return info, nil
}

// readJP2 walks the box structure to jp2h/ihdr.
func readJP2(r *bufio.Reader) (Info, error) {
	if _, err := readFull(r, len(jp2Magic)); err != nil {
		return Info{}, err
	}
	inHeader := false
	for range maxJP2Boxes {
		h, err := readFull(r, 8)
		if err != nil {
			return Info{}, err
		}
		size := int64(binary.BigEndian.Uint32(h[0:4]))
		typ := string(h[4:8])
		hdrLen := int64(8)
		if size == 1 {
			xl, err := readFull(r, 8)
			if err != nil {
				return Info{}, err
			}
			size = int64(binary.BigEndian.Uint64(xl)) //nolint:gosec // checked below
			hdrLen = 16
		}

		switch {
		case typ == "jp2h":
			inHeader = true
			continue
		case typ == "ihdr" && inHeader:
			b, err := readFull(r, 14)
			if err != nil {
				return Info{}, err
			}
			return componentInfo(
				int(binary.BigEndian.Uint32(b[4:8])),
				int(binary.BigEndian.Uint32(b[0:4])),
				int(binary.BigEndian.Uint16(b[8:10])),
				b[10],
			)
		case size == 0 || size < hdrLen:
			return Info{}, errors.New("no image header box")
		}
		if _, err := r.Discard(int(size - hdrLen)); err != nil {
			return Info{}, errTruncated
		}
	}
	return Info{}, errors.New("no image header box")
}

// readJ2K reads the SIZ marker of a raw codestream.
func readJ2K(r *bufio.Reader) (Info, error) {
	h, err := readFull(r, 43)
	if err != nil {
		return Info{}, err
	}
	be := binary.BigEndian
	return componentInfo(
		int(be.Uint32(h[8:12])-be.Uint32(h[16:20])),
		int(be.Uint32(h[12:16])-be.Uint32(h[20:24])),
		int(be.Uint16(h[40:42])),
		h[42],
	)
}

// componentInfo maps a JPEG 2000 component count and the first component's
// depth byte (bits minus one, high bit for sign) to a mode.
func componentInfo(width, height, components int, depth byte) (Info, error) {
	info := Info{Width: width, Height: height}
	switch components {
	case 1:
		info.Mode = ModeL
		if depth&0x7f+1 > 8 {
			info.Mode = ModeI16
		}
	case 2:
		info.Mode = ModeLA
	case 3:
		info.Mode = ModeRGB
	case 4:
		info.Mode = ModeRGBA
	default:
		return Info{}, fmt.Errorf("unsupported component count %d", components)
	}
	return info, nil
}
