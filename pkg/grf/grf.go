// Package grf provides reading functionality for Ragnarok Online GRF archives.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
)

const (
	grfMagic      = "Master of Magic"
	headerSize    = 46
	entrySize     = 17
	version2      = 0x200
	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
	ErrNotFound           = errors.New("file not found in GRF")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

// Archive represents an opened GRF archive.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive. Name is UTF-8 with forward slashes
// in the archive's original case.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	a.closer = file
	return a, nil
}

// NewReader reads the header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close closes the underlying file, if the archive owns one.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version2 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	var sizes [2]uint32 // compressed, uncompressed
	tableOffset := int64(a.header.TableOffset) + headerSize
	if err := binary.Read(io.NewSectionReader(a.r, tableOffset, 8), binary.LittleEndian, &sizes); err != nil {
		return err
	}

	compressed := make([]byte, sizes[0])
	if err := readAt(a.r, compressed, tableOffset+8); err != nil {
		return err
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	defer zr.Close()

	table := make([]byte, sizes[1])
	if _, err := io.ReadFull(zr, table); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	fileCount := int64(a.header.FileCount) - int64(a.header.Seed) - 7
	if fileCount < 0 {
		return fmt.Errorf("%w: negative file count", ErrCorruptTable)
	}

	offset := 0
	for i := int64(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 || offset+nameEnd+1+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d runs past the table", ErrCorruptTable, i)
		}
		raw := table[offset : offset+nameEnd]
		offset += nameEnd + 1

		rec := table[offset : offset+entrySize]
		entry := &Entry{
			Name:             encoding.SlashPath(encoding.EUCKRToUTF8(raw)),
			CompressedSize:   binary.LittleEndian.Uint32(rec),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		}
		offset += entrySize

		if entry.Flags&flagFile != 0 {
			a.entries[encoding.NormalizeGRFPath(entry.Name)] = entry
		}
	}
	return nil
}

// readAt fills buf or fails with io.ErrUnexpectedEOF.
func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		result = append(result, e.Name)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists. Lookups ignore case and slash direction.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[encoding.NormalizeGRFPath(path)]
	return ok
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.entries[encoding.NormalizeGRFPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}

	stored := make([]byte, entry.CompressedSize)
	if err := readAt(a.r, stored, int64(entry.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return stored, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	defer zr.Close()

	result := make([]byte, entry.UncompressedSize)
	if _, err := io.ReadFull(zr, result); err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return result, nil
}

// Extract copies the archive file path to dest, creating parent directories.
func (a *Archive) Extract(path, dest string) error {
	data, err := a.Read(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}
