package checksum

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCRC32CBasic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", []byte{}, 0},
		{"zero_byte", []byte{0x00}, 0x527d5351},
		{"one_byte_ff", []byte{0xff}, 0xff000000},
		{"123456789", []byte("123456789"), 0xe3069283},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Value(tt.data)
			if got != tt.want {
				t.Errorf("Value(%v) = 0x%08x, want 0x%08x", tt.data, got, tt.want)
			}
		})
	}
}

// TestCRC32CStandardResults checks RFC 3720 section B.4 test vectors.
func TestCRC32CStandardResults(t *testing.T) {
	buf := make([]byte, 32)

	for i := range buf {
		buf[i] = 0
	}
	if got := Value(buf); got != 0x8a9136aa {
		t.Errorf("All zeros: got 0x%08x, want 0x8a9136aa", got)
	}

	for i := range buf {
		buf[i] = 0xFF
	}
	if got := Value(buf); got != 0x62a8ab43 {
		t.Errorf("All 0xFF: got 0x%08x, want 0x62a8ab43", got)
	}

	for i := range buf {
		buf[i] = byte(i)
	}
	if got := Value(buf); got != 0x46dd794e {
		t.Errorf("Ascending: got 0x%08x, want 0x46dd794e", got)
	}

	for i := range buf {
		buf[i] = byte(31 - i)
	}
	if got := Value(buf); got != 0x113fdb5c {
		t.Errorf("Descending: got 0x%08x, want 0x113fdb5c", got)
	}
}

func TestCRC32CValues(t *testing.T) {
	a := Value([]byte("a"))
	foo := Value([]byte("foo"))
	if a == foo {
		t.Errorf("Value(\"a\") == Value(\"foo\"), both 0x%08x", a)
	}
}

func TestCRC32CExtend(t *testing.T) {
	full := Value([]byte("hello world"))
	partial := Value([]byte("hello "))
	extended := Extend(partial, []byte("world"))

	if extended != full {
		t.Errorf("Extend mismatch: got 0x%08x, want 0x%08x", extended, full)
	}
}

func TestCRC32CExtendMultiple(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")

	full := Value(data)

	var crc uint32
	for i := range data {
		if i == 0 {
			crc = Value(data[0:1])
		} else {
			crc = Extend(crc, data[i:i+1])
		}
	}

	if crc != full {
		t.Errorf("Incremental byte-by-byte mismatch: got 0x%08x, want 0x%08x", crc, full)
	}
}

func TestCRC32CEmptyExtend(t *testing.T) {
	data := []byte("test")
	fromEmpty := Extend(0, data)
	direct := Value(data)

	if fromEmpty != direct {
		t.Errorf("Extend from 0 mismatch: got 0x%08x, want 0x%08x", fromEmpty, direct)
	}
}

func TestCRC32CLargeBuffer(t *testing.T) {
	sizes := []int{1024, 4096, 32768, 65536}

	for _, size := range sizes {
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = byte(i % 256)
		}

		half := size / 2
		crc1 := Value(buf[:half])
		crc2 := Extend(crc1, buf[half:])
		if crc2 != Value(buf) {
			t.Errorf("Extend mismatch for size %d: got 0x%08x, want 0x%08x", size, crc2, Value(buf))
		}
	}
}

func TestCRC32CStitching(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for length := range 100 {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(rng.Intn(256))
		}

		full := Value(data)

		for split := 0; split <= length; split++ {
			crc1 := Value(data[:split])
			crc2 := Extend(crc1, data[split:])

			if crc2 != full {
				t.Errorf("Stitching failed at length=%d, split=%d: got 0x%08x, want 0x%08x",
					length, split, crc2, full)
			}
		}
	}
}

func FuzzCRC32CExtend(f *testing.F) {
	f.Add([]byte("hello"), []byte("world"))
	f.Add([]byte(""), []byte("test"))

	f.Fuzz(func(t *testing.T, part1, part2 []byte) {
		full := Value(append(part1, part2...))
		crc1 := Value(part1)
		crc2 := Extend(crc1, part2)

		if crc2 != full {
			t.Errorf("Extend mismatch for parts of len %d and %d", len(part1), len(part2))
		}
	})
}

func BenchmarkCRC32C(b *testing.B) {
	data := bytes.Repeat([]byte("x"), 4096)
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		Value(data)
	}
}

func BenchmarkCRC32CExtend(b *testing.B) {
	data := bytes.Repeat([]byte("x"), 4096)
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		crc := Value(data[:2048])
		Extend(crc, data[2048:])
	}
}
