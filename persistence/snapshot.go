package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/graph"
	"github.com/feather-store/feather/metadata"
)

// maxPayloadSize bounds the allocation made for a declared payload so a
// corrupt header cannot trigger an allocation bomb.
const maxPayloadSize = 1 << 38 // 256 GiB

// Partition is the serialized form of one modality partition. IDs, Vectors
// and Meta are parallel: Vectors holds len(IDs) rows of the database
// dimension, row-major.
type Partition struct {
	Modality string
	IDs      []uint64
	Vectors  []float32
	Meta     []metadata.Metadata
}

// Snapshot is the full serializable state of a database.
type Snapshot struct {
	Dimension  int
	Metric     distance.Metric
	Partitions []Partition
	Edges      []graph.Edge
}

// entryCount returns the total number of entries across partitions.
func (s *Snapshot) entryCount() uint64 {
	var n uint64
	for _, p := range s.Partitions {
		n += uint64(len(p.IDs))
	}
	return n
}

// Encode writes the snapshot to w: fixed header, then the checksummed,
// compressed payload. Partitions are emitted in modality order so equal
// databases encode identically.
func Encode(w io.Writer, s *Snapshot, compression CompressionType) error {
	var body bytes.Buffer
	if err := writeBody(&body, s); err != nil {
		return err
	}

	payload, err := compress(body.Bytes(), compression)
	if err != nil {
		return err
	}

	header := FileHeader{
		Magic:          MagicNumber,
		Version:        Version,
		Compression:    uint8(compression),
		Metric:         uint8(s.Metric),
		Dimension:      uint32(s.Dimension),
		PartitionCount: uint32(len(s.Partitions)),
		EntryCount:     s.entryCount(),
		EdgeCount:      uint64(len(s.Edges)),
		PayloadSize:    uint64(len(payload)),
		Checksum:       Checksum(payload),
	}
	if err := binary.Write(w, byteOrder, &header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Decode reads a snapshot previously written by Encode. Truncated or
// malformed input fails with an error wrapping ErrCorruptData; a partial
// snapshot is never returned.
func Decode(r io.Reader) (*Snapshot, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return nil, corrupt(err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	if header.PayloadSize > maxPayloadSize {
		return nil, fmt.Errorf("%w: implausible payload size %d", ErrCorruptData, header.PayloadSize)
	}

	payload := make([]byte, header.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, corrupt(err)
	}
	if actual := Checksum(payload); actual != header.Checksum {
		return nil, &ChecksumMismatchError{Expected: header.Checksum, Actual: actual}
	}

	body, err := decompress(payload, CompressionType(header.Compression))
	if err != nil {
		return nil, corrupt(err)
	}

	s, err := readBody(bytes.NewReader(body), &header)
	if err != nil {
		return nil, corrupt(err)
	}
	return s, nil
}

func writeBody(w io.Writer, s *Snapshot) error {
	bw := NewWriter(w)

	parts := append([]Partition(nil), s.Partitions...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].Modality < parts[j].Modality })

	if err := bw.WriteUint32(uint32(len(parts))); err != nil {
		return err
	}
	for _, p := range parts {
		if len(p.Vectors) != len(p.IDs)*s.Dimension {
			return fmt.Errorf("partition %q: %d vectors values for %d entries of dim %d",
				p.Modality, len(p.Vectors), len(p.IDs), s.Dimension)
		}
		if len(p.Meta) != len(p.IDs) {
			return fmt.Errorf("partition %q: %d metadata records for %d entries",
				p.Modality, len(p.Meta), len(p.IDs))
		}

		if err := bw.WriteString16(p.Modality); err != nil {
			return err
		}
		if err := bw.WriteUint64(uint64(len(p.IDs))); err != nil {
			return err
		}
		if err := bw.WriteUint64Slice(p.IDs); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(p.Vectors); err != nil {
			return err
		}
		for i := range p.Meta {
			if err := writeMetadata(bw, &p.Meta[i]); err != nil {
				return err
			}
		}
	}

	if err := bw.WriteUint64(uint64(len(s.Edges))); err != nil {
		return err
	}
	for _, e := range s.Edges {
		if err := bw.WriteUint64(e.From); err != nil {
			return err
		}
		if err := bw.WriteUint64(e.To); err != nil {
			return err
		}
		if err := bw.WriteString16(e.RelType); err != nil {
			return err
		}
		if err := bw.WriteFloat32(e.Weight); err != nil {
			return err
		}
	}
	return nil
}

func readBody(r io.Reader, header *FileHeader) (*Snapshot, error) {
	br := NewReader(r)

	s := &Snapshot{
		Dimension: int(header.Dimension),
		Metric:    distance.Metric(header.Metric),
	}

	partCount, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if partCount != header.PartitionCount {
		return nil, fmt.Errorf("partition count %d does not match header %d", partCount, header.PartitionCount)
	}

	var entries uint64
	for i := uint32(0); i < partCount; i++ {
		var p Partition
		if p.Modality, err = br.ReadString16(); err != nil {
			return nil, err
		}
		count, err := br.ReadUint64()
		if err != nil {
			return nil, err
		}
		entries += count
		if entries > header.EntryCount {
			return nil, fmt.Errorf("entry count exceeds header count %d", header.EntryCount)
		}
		if p.IDs, err = br.ReadUint64Slice(int(count)); err != nil {
			return nil, err
		}
		if p.Vectors, err = br.ReadFloat32Slice(int(count) * s.Dimension); err != nil {
			return nil, err
		}
		if count > 0 {
			p.Meta = make([]metadata.Metadata, count)
			for j := range p.Meta {
				if err := readMetadata(br, &p.Meta[j]); err != nil {
					return nil, err
				}
			}
		}
		s.Partitions = append(s.Partitions, p)
	}
	if entries != header.EntryCount {
		return nil, fmt.Errorf("entry count %d does not match header %d", entries, header.EntryCount)
	}

	edgeCount, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}
	if edgeCount != header.EdgeCount {
		return nil, fmt.Errorf("edge count %d does not match header %d", edgeCount, header.EdgeCount)
	}
	if edgeCount > 0 {
		s.Edges = make([]graph.Edge, 0, min(edgeCount, 1<<20))
	}
	for i := uint64(0); i < edgeCount; i++ {
		var e graph.Edge
		if e.From, err = br.ReadUint64(); err != nil {
			return nil, err
		}
		if e.To, err = br.ReadUint64(); err != nil {
			return nil, err
		}
		if e.RelType, err = br.ReadString16(); err != nil {
			return nil, err
		}
		if e.Weight, err = br.ReadFloat32(); err != nil {
			return nil, err
		}
		s.Edges = append(s.Edges, e)
	}

	return s, nil
}

const (
	metaFlagSource  = 1 << 0
	metaFlagContent = 1 << 1
)

func writeMetadata(bw *Writer, m *metadata.Metadata) error {
	if err := bw.WriteInt64(m.Timestamp); err != nil {
		return err
	}
	if err := bw.WriteFloat32(m.Importance); err != nil {
		return err
	}
	if err := bw.WriteUint8(m.ContextType); err != nil {
		return err
	}

	// Presence flags keep "absent" distinct from "present but empty".
	var flags uint8
	if m.Source != nil {
		flags |= metaFlagSource
	}
	if m.Content != nil {
		flags |= metaFlagContent
	}
	if err := bw.WriteUint8(flags); err != nil {
		return err
	}
	if m.Source != nil {
		if err := bw.WriteString16(*m.Source); err != nil {
			return err
		}
	}
	if m.Content != nil {
		if err := bw.WriteString32(*m.Content); err != nil {
			return err
		}
	}

	if err := bw.WriteUint16(uint16(len(m.Tags))); err != nil {
		return err
	}
	for _, tag := range m.Tags {
		if err := bw.WriteString16(tag); err != nil {
			return err
		}
	}

	if err := bw.WriteUint32(m.RecallCount); err != nil {
		return err
	}
	if err := bw.WriteInt64(m.LastRecalledAt); err != nil {
		return err
	}
	if err := bw.WriteString16(m.Namespace); err != nil {
		return err
	}
	if err := bw.WriteString16(m.Entity); err != nil {
		return err
	}

	if err := bw.WriteUint16(uint16(len(m.Attributes))); err != nil {
		return err
	}
	keys := make([]string, 0, len(m.Attributes))
	for k := range m.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := bw.WriteString16(k); err != nil {
			return err
		}
		if err := bw.WriteString32(m.Attributes[k]); err != nil {
			return err
		}
	}
	return nil
}

func readMetadata(br *Reader, m *metadata.Metadata) error {
	var err error
	if m.Timestamp, err = br.ReadInt64(); err != nil {
		return err
	}
	if m.Importance, err = br.ReadFloat32(); err != nil {
		return err
	}
	if m.ContextType, err = br.ReadUint8(); err != nil {
		return err
	}

	flags, err := br.ReadUint8()
	if err != nil {
		return err
	}
	if flags&metaFlagSource != 0 {
		s, err := br.ReadString16()
		if err != nil {
			return err
		}
		m.Source = &s
	}
	if flags&metaFlagContent != 0 {
		c, err := br.ReadString32()
		if err != nil {
			return err
		}
		m.Content = &c
	}

	tagCount, err := br.ReadUint16()
	if err != nil {
		return err
	}
	for i := uint16(0); i < tagCount; i++ {
		tag, err := br.ReadString16()
		if err != nil {
			return err
		}
		m.Tags = append(m.Tags, tag)
	}

	if m.RecallCount, err = br.ReadUint32(); err != nil {
		return err
	}
	if m.LastRecalledAt, err = br.ReadInt64(); err != nil {
		return err
	}
	if m.Namespace, err = br.ReadString16(); err != nil {
		return err
	}
	if m.Entity, err = br.ReadString16(); err != nil {
		return err
	}

	attrCount, err := br.ReadUint16()
	if err != nil {
		return err
	}
	if attrCount > 0 {
		m.Attributes = make(map[string]string, attrCount)
		for i := uint16(0); i < attrCount; i++ {
			k, err := br.ReadString16()
			if err != nil {
				return err
			}
			v, err := br.ReadString32()
			if err != nil {
				return err
			}
			m.Attributes[k] = v
		}
	}
	return nil
}

func compress(body []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return body, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %v", compression)
	}
}

func decompress(payload []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(payload, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	default:
		return nil, fmt.Errorf("unsupported compression: %v", compression)
	}
}

// corrupt maps low-level decode failures onto ErrCorruptData, preserving
// errors that already carry it.
func corrupt(err error) error {
	if errors.Is(err, ErrCorruptData) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrCorruptData, err)
}
