package fitcodec

import "encoding/binary"

// FIT base types. The canonical byte keeps the endian-capable flag (high bit);
// matching during decode goes by the low five bits so producers that strip the
// flag still parse.
type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

var baseSizes = map[baseType]int{
	baseEnum:    1,
	baseSint8:   1,
	baseUint8:   1,
	baseSint16:  2,
	baseUint16:  2,
	baseSint32:  4,
	baseUint32:  4,
	baseString:  1,
	baseFloat32: 4,
	baseFloat64: 8,
	baseUint8z:  1,
	baseUint16z: 2,
	baseUint32z: 4,
	baseByte:    1,
	baseSint64:  8,
	baseUint64:  8,
	baseUint64z: 8,
}

// canonicalBaseType restores the endian-capable flag bit from the low five
// bits of a declared base type byte.
func canonicalBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

// decodeScalar decodes one scalar of the given base type and reports whether
// it holds a real value. Sentinel bit patterns decode to ok=false so the raw
// sentinel integer never escapes the field-decode boundary. Types the semantic
// layer never reads (floats, 64-bit, string, byte arrays) report ok=false and
// are consumed purely for alignment.
func decodeScalar(raw []byte, bt baseType, arch binary.ByteOrder) (int64, bool) {
	size, known := baseSizes[bt]
	if !known || size != len(raw) {
		return 0, false
	}
	switch bt {
	case baseEnum:
		v := raw[0]
		return int64(v), v != 0xFF
	case baseSint8:
		v := int8(raw[0])
		return int64(v), v != 0x7F
	case baseUint8:
		v := raw[0]
		return int64(v), v != 0xFF
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return int64(v), v != 0x7FFF
	case baseUint16:
		v := arch.Uint16(raw)
		return int64(v), v != 0xFFFF
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return int64(v), v != 0x7FFFFFFF
	case baseUint32:
		v := arch.Uint32(raw)
		return int64(v), v != 0xFFFFFFFF
	case baseUint8z:
		v := raw[0]
		return int64(v), v != 0x00
	case baseUint16z:
		v := arch.Uint16(raw)
		return int64(v), v != 0x0000
	case baseUint32z:
		v := arch.Uint32(raw)
		return int64(v), v != 0x00000000
	default:
		return 0, false
	}
}
