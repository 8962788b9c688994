package fitcodec

import (
	"testing"

	"github.com/tormoder/fit/dyncrc16"
)

func TestChecksumMatchesReferenceImplementation(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0xFF},
		[]byte(".FIT"),
		{0x0E, 0x20, 0x54, 0x08, 0x64, 0x00, 0x00, 0x00, 0x2E, 0x46, 0x49, 0x54},
		[]byte("the quick brown fox jumps over the lazy dog"),
	}
	for _, data := range cases {
		got := Checksum(data)
		want := dyncrc16.Checksum(data)
		if got != want {
			t.Fatalf("Checksum(%x) = 0x%04X, reference 0x%04X", data, got, want)
		}
	}
}

func TestChecksumDetectsSingleBitFlip(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 7)
	}
	base := Checksum(data)

	for i := 0; i < len(data); i++ {
		for bit := 0; bit < 8; bit++ {
			data[i] ^= 1 << bit
			if Checksum(data) == base {
				t.Fatalf("bit flip at byte %d bit %d not detected", i, bit)
			}
			data[i] ^= 1 << bit
		}
	}
}
