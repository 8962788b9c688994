package fitcodec

// FIT's table-driven, nibble-folding CRC-16. The same routine guards the
// 14-byte header and the file trailer, and the encoder uses it verbatim, so
// encode and decode are bit-identical by construction.

var crcTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400,
	0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401,
	0x5000, 0x9C01, 0x8801, 0x4400,
}

// crcUpdate folds one byte into the running CRC, low nibble first.
func crcUpdate(crc uint16, b byte) uint16 {
	tmp := crcTable[crc&0x0F]
	crc = (crc >> 4) & 0x0FFF
	crc = crc ^ tmp ^ crcTable[b&0x0F]

	tmp = crcTable[crc&0x0F]
	crc = (crc >> 4) & 0x0FFF
	crc = crc ^ tmp ^ crcTable[(b>>4)&0x0F]
	return crc
}

// Checksum computes the FIT CRC-16 over data.
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crcUpdate(crc, b)
	}
	return crc
}
