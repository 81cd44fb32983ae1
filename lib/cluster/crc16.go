package cluster

// CRC-16/X-25: reflected polynomial 0x1021 (0x8408), init 0xFFFF, xorout 0xFFFF.
// The check value for "123456789" is 0x906E.
const crc16X25Poly = 0x8408

var crc16X25Table = makeCRC16Table(crc16X25Poly)

func makeCRC16Table(poly uint16) *[256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return &table
}

// CRC16 computes the CRC-16/X-25 checksum of data
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc>>8 ^ crc16X25Table[byte(crc)^b]
	}
	return ^crc
}
