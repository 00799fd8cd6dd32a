// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

// LZMAX86 implements Compressor and includes a BCJ x86 filter which is
// applied before LZMA compression and undone after decompression.
type LZMAX86 struct {
	lzma Compressor
}

// Name returns the type of compression employed.
func (c *LZMAX86) Name() string {
	return "LZMAX86"
}

// Decode decodes a byte slice of LZMA data and reverses the x86 filter.
func (c *LZMAX86) Decode(encodedData []byte) ([]byte, error) {
	decodedData, err := c.lzma.Decode(encodedData)
	if err != nil {
		return nil, err
	}
	x86Convert(decodedData, 0, false)
	return decodedData, nil
}

// Encode applies the x86 filter to a copy of the data and encodes it with
// LZMA.
func (c *LZMAX86) Encode(decodedData []byte) ([]byte, error) {
	filtered := make([]byte, len(decodedData))
	copy(filtered, decodedData)
	x86Convert(filtered, 0, true)
	return c.lzma.Encode(filtered)
}

func test86MSByte(b byte) bool {
	return (b+1)&0xFE == 0
}

// x86Convert rewrites the relative targets of E8 (call) and E9 (jmp)
// instructions to absolute ones when encoding, and back when decoding.
// It processes the whole buffer in one call, ip is the address of data[0].
func x86Convert(data []byte, ip uint32, encoding bool) {
	if len(data) < 5 {
		return
	}
	size := len(data) - 4
	ip += 5
	pos := 0
	var mask uint32
	for {
		p := pos
		for p < size && data[p]&0xFE != 0xE8 {
			p++
		}
		d := p - pos
		pos = p
		if p >= size {
			return
		}
		if d > 2 {
			mask = 0
		} else {
			mask >>= uint(d)
			if mask != 0 && (mask > 4 || mask == 3 || test86MSByte(data[p+int(mask>>1)+1])) {
				mask = (mask >> 1) | 4
				pos++
				continue
			}
		}

		if !test86MSByte(data[p+4]) {
			mask = (mask >> 1) | 4
			pos++
			continue
		}

		v := uint32(data[p+4])<<24 | uint32(data[p+3])<<16 | uint32(data[p+2])<<8 | uint32(data[p+1])
		cur := ip + uint32(pos)
		pos += 5
		if encoding {
			v += cur
		} else {
			v -= cur
		}
		if mask != 0 {
			sh := (mask & 6) << 2
			if test86MSByte(byte(v >> sh)) {
				v ^= (uint32(0x100) << sh) - 1
				if encoding {
					v += cur
				} else {
					v -= cur
				}
			}
			mask = 0
		}
		data[p+1] = byte(v)
		data[p+2] = byte(v >> 8)
		data[p+3] = byte(v >> 16)
		data[p+4] = byte(0 - ((v >> 24) & 1))
	}
}
