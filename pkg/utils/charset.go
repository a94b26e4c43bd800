package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// IsUTF8Name reports whether name denotes UTF-8 (or is empty, which means
// the driver default).
func IsUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// LookupEncoding 根据 IANA/WHATWG 名称查找字符集. UTF-8 返回 nil, 表示无需转换.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if IsUTF8Name(name) {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// DecodeBytes converts data in enc to UTF-8. A nil enc returns data as-is.
func DecodeBytes(enc encoding.Encoding, data []byte) (string, error) {
	if enc == nil {
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode result: %w", err)
	}
	return string(out), nil
}

// EncodeReader wraps r so that its UTF-8 content is re-encoded with enc.
// A nil enc returns r unchanged.
func EncodeReader(enc encoding.Encoding, r io.Reader) io.Reader {
	if enc == nil {
		return r
	}
	return transform.NewReader(r, enc.NewEncoder())
}

// SniffUTF16 检测 UTF-16 BOM, 如有则将内容流式转换为 UTF-8.
// 没有 BOM 的输入原样返回（已被缓冲）.
func SniffUTF16(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	bom, err := br.Peek(2)
	if err != nil || len(bom) < 2 {
		return br
	}

	isLE := bom[0] == 0xFF && bom[1] == 0xFE
	isBE := bom[0] == 0xFE && bom[1] == 0xFF
	if !isLE && !isBE {
		return br
	}

	// ExpectBOM 会根据 BOM 选择字节序并将其去掉
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	return transform.NewReader(br, decoder)
}

// CharsetReader is suitable for xml.Decoder.CharsetReader. UTF-16 labels are
// passed through because such input has already been transcoded by SniffUTF16.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if IsUTF8Name(l) || strings.HasPrefix(l, "utf-16") || l == "us-ascii" || l == "ascii" {
		return input, nil
	}
	enc, err := htmlindex.Get(l)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
