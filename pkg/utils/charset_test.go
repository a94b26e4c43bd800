package utils

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestLookupEncoding_UTF8(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", " utf-8 "} {
		enc, err := LookupEncoding(name)
		require.NoError(t, err)
		assert.Nil(t, enc, name)
	}
}

func TestLookupEncoding_Unknown(t *testing.T) {
	_, err := LookupEncoding("klingon-8")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestDecodeBytes_Latin1(t *testing.T) {
	enc, err := LookupEncoding("iso-8859-1")
	require.NoError(t, err)

	s, err := DecodeBytes(enc, []byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", s)
}

func TestDecodeBytes_NilEncoding(t *testing.T) {
	s, err := DecodeBytes(nil, []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", s)
}

func TestEncodeReader_RoundTrip(t *testing.T) {
	enc, err := LookupEncoding("windows-1252")
	require.NoError(t, err)

	encoded, err := io.ReadAll(EncodeReader(enc, strings.NewReader("naïve")))
	require.NoError(t, err)
	assert.Equal(t, []byte{'n', 'a', 0xEF, 'v', 'e'}, encoded)

	decoded, err := DecodeBytes(enc, encoded)
	require.NoError(t, err)
	assert.Equal(t, "naïve", decoded)
}

func TestSniffUTF16_LittleEndian(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("<a>hé</a>"))
	require.NoError(t, err)

	out, err := io.ReadAll(SniffUTF16(bytes.NewReader(utf16)))
	require.NoError(t, err)
	assert.Equal(t, "<a>hé</a>", string(out))
}

func TestSniffUTF16_BigEndian(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("<b/>"))
	require.NoError(t, err)

	out, err := io.ReadAll(SniffUTF16(bytes.NewReader(utf16)))
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(out))
}

func TestSniffUTF16_PlainInput(t *testing.T) {
	out, err := io.ReadAll(SniffUTF16(strings.NewReader("<x/>")))
	require.NoError(t, err)
	assert.Equal(t, "<x/>", string(out))

	out, err = io.ReadAll(SniffUTF16(strings.NewReader("a")))
	require.NoError(t, err)
	assert.Equal(t, "a", string(out))
}

func TestCharsetReader(t *testing.T) {
	r, err := CharsetReader("UTF-16", strings.NewReader("x"))
	require.NoError(t, err)
	out, _ := io.ReadAll(r)
	assert.Equal(t, "x", string(out))

	r, err = CharsetReader("ISO-8859-1", bytes.NewReader([]byte{0xE9}))
	require.NoError(t, err)
	out, _ = io.ReadAll(r)
	assert.Equal(t, "é", string(out))

	_, err = CharsetReader("no-such-charset", strings.NewReader(""))
	assert.Error(t, err)
}
