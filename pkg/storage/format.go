package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "GODB"
	// Current version
	FormatVersion = 2
	// File extension for our optimized format
	FileExtension = ".godb"

	// FlagLZ4 marks a payload compressed as a single lz4 block.
	FlagLZ4 uint8 = 1 << 0
)

// FileHeader represents the header of a collection file
type FileHeader struct {
	Magic    [4]byte // "GODB"
	Version  uint8   // Format version
	Flags    uint8   // FlagLZ4
	Reserved [2]byte // Reserved for future use
	RawSize  uint32  // Payload size before compression
	DocCount uint32  // Number of documents in the payload
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, rawSize, docCount int) error {
	header := FileHeader{
		Magic:    [4]byte{'G', 'O', 'D', 'B'},
		Version:  FormatVersion,
		Flags:    flags,
		RawSize:  uint32(rawSize),
		DocCount: uint32(docCount),
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Validate magic bytes
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	// Validate version
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// StorageData is the msgpack payload of a collection file
type StorageData struct {
	Collection string                   `msgpack:"collection"`
	Documents  []map[string]interface{} `msgpack:"documents"`
	Indexes    []string                 `msgpack:"indexes,omitempty"`
	Metadata   map[string]interface{}   `msgpack:"metadata,omitempty"`
}

// EncodeCollection serializes a collection snapshot into the file format.
// The payload is lz4-compressed only when that makes it smaller.
func EncodeCollection(name string, docs []domain.Document, indexes []string) ([]byte, error) {
	data := StorageData{
		Collection: name,
		Documents:  make([]map[string]interface{}, len(docs)),
		Indexes:    indexes,
	}
	for i, doc := range docs {
		data.Documents[i] = map[string]interface{}(doc)
	}

	raw, err := msgpack.Marshal(&data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	payload := raw
	var flags uint8
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if n > 0 && n < len(raw) {
		payload = compressed[:n]
		flags |= FlagLZ4
	}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, flags, len(raw), len(docs)); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeCollection parses a collection file. Document values are normalized.
func DecodeCollection(r io.Reader) (*StorageData, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	raw := payload
	if header.Flags&FlagLZ4 != 0 {
		raw = make([]byte, header.RawSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		raw = raw[:n]
	}
	if len(raw) != int(header.RawSize) {
		return nil, fmt.Errorf("payload size mismatch: header says %d, got %d", header.RawSize, len(raw))
	}

	var data StorageData
	if err := msgpack.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	for i, doc := range data.Documents {
		data.Documents[i] = domain.NormalizeDocument(doc)
	}
	return &data, nil
}
