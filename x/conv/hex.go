package conv

const hexd = "0123456789abcdef"

// U8Hex writes "0x" and two lowercase hex digits into buf.
func U8Hex(buf []byte, n uint8) []byte {
	if len(buf) < 4 {
		return buf[:0]
	}
	buf[0], buf[1] = '0', 'x'
	buf[2] = hexd[n>>4]
	buf[3] = hexd[n&0xF]
	return buf[:4]
}
