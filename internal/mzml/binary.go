package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"

	"timsconvert/internal/spectrum"
)

// Pack encodes values as little-endian floats of the requested width and
// optionally zlib-compresses the result.
func Pack(values []float64, enc spectrum.Encoding, comp spectrum.Compression) ([]byte, error) {
	var raw []byte
	switch enc {
	case spectrum.Encoding32:
		raw = make([]byte, 0, 4*len(values))
		for _, v := range values {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(float32(v)))
		}
	case spectrum.Encoding64, 0:
		raw = make([]byte, 0, 8*len(values))
		for _, v := range values {
			raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %d", enc)
	}
	if comp != spectrum.CompressionZlib {
		return raw, nil
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reverses Pack.
func Unpack(data []byte, enc spectrum.Encoding, comp spectrum.Compression) ([]float64, error) {
	if comp == spectrum.CompressionZlib {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib reader: %w", err)
		}
		defer zr.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(zr); err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		data = buf.Bytes()
	}
	width := 8
	if enc == spectrum.Encoding32 {
		width = 4
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("binary length %d is not a multiple of %d", len(data), width)
	}
	out := make([]float64, 0, len(data)/width)
	for i := 0; i < len(data); i += width {
		if width == 4 {
			out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))))
			continue
		}
		out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(data[i:])))
	}
	return out, nil
}

// EncodingTerm names the binary data type term for enc.
func EncodingTerm(enc spectrum.Encoding) string {
	if enc == spectrum.Encoding32 {
		return "32-bit float"
	}
	return "64-bit float"
}

// CompressionTerm names the compression term for comp.
func CompressionTerm(comp spectrum.Compression) string {
	if comp == spectrum.CompressionZlib {
		return "zlib compression"
	}
	return "no compression"
}
