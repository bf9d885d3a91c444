// Package persistence implements the single-file binary format of a feather
// database: a fixed header followed by a checksummed, optionally compressed
// payload holding every modality partition and every link edge.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"unsafe"
)

// byteOrder is the wire byte order for all fixed-width fields.
var byteOrder = binary.LittleEndian

// Writer writes the binary wire format.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (bw *Writer) WriteUint8(v uint8) error {
	_, err := bw.w.Write([]byte{v})
	return err
}

func (bw *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	byteOrder.PutUint16(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	byteOrder.PutUint32(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	byteOrder.PutUint64(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *Writer) WriteInt64(v int64) error {
	return bw.WriteUint64(uint64(v))
}

func (bw *Writer) WriteFloat32(v float32) error {
	return bw.WriteUint32(math.Float32bits(v))
}

// WriteFloat32Slice writes a float32 slice as raw little-endian bytes.
// The direct memory view avoids a copy; slices here are heap-allocated and
// therefore aligned.
func (bw *Writer) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(raw)
	return err
}

// WriteUint64Slice writes a uint64 slice as raw little-endian bytes.
func (bw *Writer) WriteUint64Slice(slice []uint64) error {
	if len(slice) == 0 {
		return nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8)
	_, err := bw.w.Write(raw)
	return err
}

// WriteString16 writes a length-prefixed string (uint16 length).
func (bw *Writer) WriteString16(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string too long for uint16 prefix: %d", len(s))
	}
	if err := bw.WriteUint16(uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(bw.w, s)
	return err
}

// WriteString32 writes a length-prefixed string (uint32 length).
func (bw *Writer) WriteString32(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("string too long for uint32 prefix: %d", len(s))
	}
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(bw.w, s)
	return err
}

// Reader reads the binary wire format. Short reads surface as
// ErrCorruptData through the decode path.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (br *Reader) ReadUint8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (br *Reader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint16(buf[:]), nil
}

func (br *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf[:]), nil
}

func (br *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(buf[:]), nil
}

func (br *Reader) ReadInt64() (int64, error) {
	v, err := br.ReadUint64()
	return int64(v), err
}

func (br *Reader) ReadFloat32() (float32, error) {
	v, err := br.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat32Slice reads count float32 values.
func (br *Reader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, count)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), count*4)
	if _, err := io.ReadFull(br.r, raw); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReadUint64Slice reads count uint64 values.
func (br *Reader) ReadUint64Slice(count int) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint64, count)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*8)
	if _, err := io.ReadFull(br.r, raw); err != nil {
		return nil, err
	}
	return slice, nil
}

// ReadString16 reads a string with a uint16 length prefix.
func (br *Reader) ReadString16() (string, error) {
	n, err := br.ReadUint16()
	if err != nil {
		return "", err
	}
	return br.readString(int(n))
}

// ReadString32 reads a string with a uint32 length prefix.
func (br *Reader) ReadString32() (string, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return "", err
	}
	return br.readString(int(n))
}

func (br *Reader) readString(n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SaveToFile writes a file atomically: it writes to a temp file in the same
// directory, fsyncs, renames over the target and fsyncs the directory. An
// interrupted save never leaves a half-written database behind.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens a file and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
