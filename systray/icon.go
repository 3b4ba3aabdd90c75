package systray

import (
	"bytes"
	"encoding/binary"
)

const iconSize = 16

// icon returns a 16x16 32-bit ICO: a rounded blue key cap with a white
// bar across it.
func icon() []byte {
	const (
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = iconSize * iconSize * 4
		maskLen   = iconSize * 4 // 1bpp rows padded to 32 bits
	)

	var buf bytes.Buffer
	le := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	// ICONDIR
	le(uint16(0))
	le(uint16(1))
	le(uint16(1))
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	le(uint16(1))
	le(uint16(32))
	le(uint32(dibLen + pixelLen + maskLen))
	le(uint32(headerLen))

	// BITMAPINFOHEADER; height covers XOR and AND masks.
	le(uint32(dibLen))
	le(int32(iconSize))
	le(int32(iconSize * 2))
	le(uint16(1))
	le(uint16(32))
	le(uint32(0))
	le(uint32(pixelLen + maskLen))
	le(int32(0))
	le(int32(0))
	le(uint32(0))
	le(uint32(0))

	// Rows are stored bottom-up, BGRA.
	for y := iconSize - 1; y >= 0; y-- {
		for x := 0; x < iconSize; x++ {
			buf.Write(pixel(x, y))
		}
	}
	buf.Write(make([]byte, maskLen))

	return buf.Bytes()
}

func pixel(x, y int) []byte {
	corner := (x == 0 || x == iconSize-1) && (y == 0 || y == iconSize-1)
	switch {
	case corner:
		return []byte{0, 0, 0, 0}
	case y >= 7 && y <= 8 && x >= 3 && x <= 12:
		return []byte{0xff, 0xff, 0xff, 0xff}
	}
	return []byte{0xd4, 0x78, 0x1e, 0xff}
}
