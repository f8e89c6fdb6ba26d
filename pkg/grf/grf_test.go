package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
)

type testFile struct {
	name    string
	content []byte
	stored  bool // written without compression
	flags   uint8
}

// buildGRF assembles a version 0x200 archive. Names are written in EUC-KR with
// backslashes, as the client does.
func buildGRF(t *testing.T, files []testFile) []byte {
	t.Helper()

	var body, table bytes.Buffer
	for _, f := range files {
		data := f.content
		if !f.stored {
			var z bytes.Buffer
			w := zlib.NewWriter(&z)
			_, err := w.Write(f.content)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			data = z.Bytes()
		}
		aligned := (len(data) + 7) &^ 7

		offset := uint32(body.Len())
		body.Write(data)
		body.Write(make([]byte, aligned-len(data)))

		flags := f.flags
		if flags == 0 {
			flags = flagFile
		}
		table.Write(encoding.UTF8ToEUCKR(f.name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(data)))
		binary.Write(&table, binary.LittleEndian, uint32(aligned))
		binary.Write(&table, binary.LittleEndian, uint32(len(f.content)))
		table.WriteByte(flags)
		binary.Write(&table, binary.LittleEndian, offset)
	}

	var zt bytes.Buffer
	w := zlib.NewWriter(&zt)
	_, err := w.Write(table.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var out bytes.Buffer
	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     version2,
	}
	copy(header.Magic[:], grfMagic)
	require.NoError(t, binary.Write(&out, binary.LittleEndian, header))
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(zt.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(zt.Bytes())
	return out.Bytes()
}

func sampleFiles() []testFile {
	return []testFile{
		{name: `data\model\prontera\fountain.rsm`, content: []byte("GRSM fake model")},
		{name: `data\texture\Wall.bmp`, content: bytes.Repeat([]byte("BM"), 64)},
		{name: `data\texture\유저인터페이스\지붕.bmp`, content: []byte("roof"), stored: true},
		{name: `data\secret.txt`, content: []byte("hidden"), flags: flagFile | 0x02},
		{name: `data\folder`, content: nil, flags: 0x02},
	}
}

func openSample(t *testing.T) *Archive {
	t.Helper()
	a, err := NewReader(bytes.NewReader(buildGRF(t, sampleFiles())))
	require.NoError(t, err)
	return a
}

func TestList(t *testing.T) {
	a := openSample(t)
	assert.Equal(t, []string{
		"data/model/prontera/fountain.rsm",
		"data/secret.txt",
		"data/texture/Wall.bmp",
		"data/texture/유저인터페이스/지붕.bmp",
	}, a.List(), "directories are skipped, names decoded")
}

func TestContains(t *testing.T) {
	a := openSample(t)

	tests := []struct {
		path string
		want bool
	}{
		{"data/texture/wall.bmp", true},
		{`DATA\TEXTURE\WALL.BMP`, true},
		{`data\texture\유저인터페이스\지붕.bmp`, true},
		{"data/texture/missing.bmp", false},
		{"data/folder", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Contains(tt.path))
		})
	}
}

func TestRead(t *testing.T) {
	a := openSample(t)

	data, err := a.Read(`data\texture\wall.bmp`)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("BM"), 64), data)

	data, err = a.Read("data/texture/유저인터페이스/지붕.bmp")
	require.NoError(t, err)
	assert.Equal(t, []byte("roof"), data, "stored entry")

	_, err = a.Read("data/nothing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = a.Read("data/secret.txt")
	assert.ErrorIs(t, err, ErrEncrypted)
}

func TestExtract(t *testing.T) {
	a := openSample(t)
	dest := filepath.Join(t.TempDir(), "textures", "Wall.bmp")

	require.NoError(t, a.Extract("data/texture/wall.bmp", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Len(t, data, 128)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.grf")
	require.NoError(t, os.WriteFile(path, buildGRF(t, sampleFiles()), 0644))

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.Contains("data/model/prontera/fountain.rsm"))

	_, err = Open(filepath.Join(t.TempDir(), "missing.grf"))
	assert.Error(t, err)
}

func TestNewReaderErrors(t *testing.T) {
	valid := buildGRF(t, sampleFiles())

	badMagic := bytes.Clone(valid)
	copy(badMagic, "Master of Music")
	_, err := NewReader(bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrInvalidMagic)

	badVersion := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badVersion[42:], 0x103)
	_, err = NewReader(bytes.NewReader(badVersion))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = NewReader(bytes.NewReader(valid[:len(valid)-4]))
	assert.Error(t, err, "truncated table")

	tooMany := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(tooMany[38:], uint32(len(sampleFiles())+8))
	_, err = NewReader(bytes.NewReader(tooMany))
	assert.ErrorIs(t, err, ErrCorruptTable)
}
