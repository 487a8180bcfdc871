package meta

import(
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TIFF field types
const(
	tByte     = 1
	tASCII    = 2
	tShort    = 3
	tLong     = 4
	tRational = 5
)

type ifdEntry struct {
	id    uint16
	typ   uint16
	count uint32
	val   []byte
}

var le = binary.LittleEndian

func asciiEntry(id uint16, s string) ifdEntry {
	return ifdEntry{id, tASCII, uint32(len(s)+1), append([]byte(s), 0)}
}

func shortEntry(id uint16, vals ...uint16) ifdEntry {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		le.PutUint16(b[2*i:], v)
	}
	return ifdEntry{id, tShort, uint32(len(vals)), b}
}

func longEntry(id uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return ifdEntry{id, tLong, 1, b}
}

func rationalEntry(id uint16, num, den uint32) ifdEntry {
	b := make([]byte, 8)
	le.PutUint32(b, num)
	le.PutUint32(b[4:], den)
	return ifdEntry{id, tRational, 1, b}
}

// encodeIFD lays out a directory at file offset base, with any values
// longer than 4 bytes stored straight after it.
func encodeIFD(base uint32, entries []ifdEntry) []byte {
	var dir, data bytes.Buffer
	dataOff := base + uint32(2 + 12*len(entries) + 4)

	binary.Write(&dir, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&dir, le, e.id)
		binary.Write(&dir, le, e.typ)
		binary.Write(&dir, le, e.count)
		if len(e.val) <= 4 {
			dir.Write(e.val)
			dir.Write(make([]byte, 4-len(e.val)))
		} else {
			binary.Write(&dir, le, dataOff + uint32(data.Len()))
			data.Write(e.val)
			if data.Len() % 2 == 1 {
				data.WriteByte(0)
			}
		}
	}
	binary.Write(&dir, le, uint32(0))

	return append(dir.Bytes(), data.Bytes()...)
}

// writeTestTIFF builds a header-only little-endian TIFF carrying the tags a
// RedEdge capture has: EXIF in IFD0 and the Exif sub-IFD, XMP in IFD0.
func writeTestTIFF(t *testing.T, xmp string) string {
	ifd0 := func(exifOffset uint32) []ifdEntry {
		return []ifdEntry{
			shortEntry(256, 10),
			shortEntry(257, 8),
			shortEntry(tiffTagBitsPerSample, 16),
			asciiEntry(271, "MicaSense"),
			asciiEntry(305, "v2.1.2"),
			{tiffTagXMP, tByte, uint32(len(xmp)), []byte(xmp)},
			longEntry(34665, exifOffset),
			shortEntry(tiffTagBlackLevel, 4800, 4800, 4800, 4800),
		}
	}
	exifDir := []ifdEntry{
		rationalEntry(33434, 1, 2000),
		shortEntry(34855, 100),
		longEntry(34867, 200),
		asciiEntry(36868, "2017:09:03 12:00:00"),
	}

	// IFD0's length doesn't depend on the pointer value
	exifOffset := uint32(8 + len(encodeIFD(8, ifd0(0))))

	var b bytes.Buffer
	b.WriteString("II")
	binary.Write(&b, le, uint16(42))
	binary.Write(&b, le, uint32(8))
	b.Write(encodeIFD(8, ifd0(exifOffset)))
	require.Equal(t, int(exifOffset), b.Len())
	b.Write(encodeIFD(exifOffset, exifDir))

	fn := filepath.Join(t.TempDir(), "IMG_0001_3.tif")
	require.NoError(t, os.WriteFile(fn, b.Bytes(), 0644))
	return fn
}

func TestNativeReader(t *testing.T) {
	fn := writeTestTIFF(t, testXMP)

	m, err := NativeReader{}.Read(fn)
	require.NoError(t, err)

	assert.Equal(t, "MicaSense", m.Tags[TagMake])
	assert.Equal(t, "v2.1.2", m.Tags[TagSoftware])
	assert.Equal(t, "2017:09:03 12:00:00", m.Tags[TagCreateDate])
	assert.Equal(t, "1/2000", m.Tags[TagExposureTime])
	assert.Equal(t, "100", m.Tags[TagISO])
	assert.Equal(t, "200", m.Tags[TagISOSpeed])
	assert.Equal(t, "16", m.Tags[TagBitsPerSample])
	assert.Equal(t, "4800,4800,4800,4800", m.Tags[TagBlackLevel])
	assert.Equal(t, "Red", m.Tags[TagBandName])
	assert.Equal(t, "12.5", m.Tags[TagIrradianceYaw])

	te, err := m.Float(TagExposureTime)
	require.NoError(t, err)
	assert.InDelta(t, 0.0005, te, 1e-12)

	band, err := m.Band()
	require.NoError(t, err)
	assert.Equal(t, "Red", band)
}

func TestNativeReaderMissingFile(t *testing.T) {
	_, err := NativeReader{}.Read(filepath.Join(t.TempDir(), "nope.tif"))
	assert.Error(t, err)
}
