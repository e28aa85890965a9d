package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	apperr "caseprep/internal/errors"
)

// On-disk layout of a FAISS IndexFlat, little-endian throughout.
const (
	fourccIP = "IxFI"
	fourccL2 = "IxF2"

	headerDummy = int64(1 << 20)
	// fourcc + d + ntotal + 2 dummies + is_trained + metric_type + size
	headerSize = 4 + 4 + 8 + 8 + 8 + 1 + 4 + 8
)

// Decode parses a serialized flat index.
func Decode(data []byte) (*Flat, error) {
	if len(data) < headerSize {
		return nil, formatError("truncated header: %d bytes", len(data))
	}

	r := bytes.NewReader(data)
	var fourcc [4]byte
	_, _ = r.Read(fourcc[:])

	var fileMetric Metric
	switch string(fourcc[:]) {
	case fourccIP:
		fileMetric = InnerProduct
	case fourccL2:
		fileMetric = L2
	default:
		return nil, formatError("unsupported index type %q", fourcc[:])
	}

	var hdr struct {
		Dim       int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
		Size      uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, formatError("reading header: %v", err)
	}

	if hdr.Dim <= 0 {
		return nil, formatError("invalid dimension %d", hdr.Dim)
	}
	if hdr.NTotal < 0 {
		return nil, formatError("invalid vector count %d", hdr.NTotal)
	}
	if Metric(hdr.Metric) != fileMetric {
		return nil, formatError("metric type %d disagrees with %s", hdr.Metric, fourcc[:])
	}
	want := uint64(hdr.NTotal) * uint64(hdr.Dim)
	if hdr.NTotal > 0 && want/uint64(hdr.NTotal) != uint64(hdr.Dim) {
		return nil, formatError("vector count %d overflows", hdr.NTotal)
	}
	if hdr.Size != want {
		return nil, formatError("payload holds %d values, want %d", hdr.Size, want)
	}
	remaining := uint64(r.Len())
	if want > remaining/4 {
		return nil, formatError("truncated payload: %d bytes for %d values", remaining, want)
	}
	if remaining != want*4 {
		return nil, formatError("%d trailing bytes", remaining-want*4)
	}

	values := make([]float32, want)
	payload := data[headerSize:]
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return NewFlat(int(hdr.Dim), fileMetric, values)
}

// Encode writes f in the layout Decode reads.
func Encode(w io.Writer, f *Flat) error {
	fourcc := fourccIP
	if f.metric == L2 {
		fourcc = fourccL2
	}

	buf := make([]byte, 0, headerSize+len(f.data)*4)
	buf = append(buf, fourcc...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(f.dim)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(f.Len()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(headerDummy))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(headerDummy))
	buf = append(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(f.metric)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(f.data)))
	for _, v := range f.data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}

	_, err := w.Write(buf)
	return err
}

// Marshal is Encode into a fresh byte slice.
func Marshal(f *Flat) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, f)
	return buf.Bytes()
}

func formatError(format string, args ...any) error {
	return apperr.New(apperr.CodeIndexInvalidFormat, "index: "+fmt.Sprintf(format, args...))
}
