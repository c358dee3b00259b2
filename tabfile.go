package microbiomisc

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/csimplestring/go-csv/detector"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression is the compression scheme detected on an input file.
type Compression byte

const (
	CompressionInvalid Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionZ
	CompressionBZip2
)

// Magic byte signatures from https://stackoverflow.com/a/19127748/199475
var compressionSigs = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b, 0x08},
	CompressionZip:   {0x50, 0x4b, 0x03, 0x04},
	CompressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	CompressionZ:     {0x1f, 0x9d},
	CompressionBZip2: {0x42, 0x5a, 0x68},
}

// DetectCompression sniffs the leading bytes of br against the known magic
// signatures without consuming the reader.
func DetectCompression(br *bufio.Reader) (Compression, error) {
	buff, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return CompressionInvalid, err
	}

Outer:
	for scheme, sig := range compressionSigs {
		if len(buff) < len(sig) {
			continue
		}
		for i := range sig {
			if buff[i] != sig[i] {
				continue Outer
			}
		}
		return scheme, nil
	}

	return CompressionNone, nil
}

// decompressor wraps br in the reader that undoes its detected compression
// scheme, or returns br untouched for uncompressed data.
func decompressor(br *bufio.Reader) (io.Reader, error) {
	scheme, err := DetectCompression(br)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case CompressionGzip:
		return gzip.NewReader(br)
	case CompressionZip:
		return zipstream.NewReader(br), nil
	case CompressionBZip2:
		return bzip2.NewReader(br), nil
	case CompressionXZ:
		return xz.NewReader(br, 0)
	case CompressionZ:
		return zlib.NewReader(br)
	}

	return br, nil
}

// DetermineDelimiter returns the single most likely rune that would delimit
// the values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}

// OpenFromGoogleStorage opens a gs:// object for reading. client must be
// non-nil (callers only initialize one when a gs:// path is in play).
func OpenFromGoogleStorage(path string, client *storage.Client) (io.ReadCloser, error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return nil, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}
	bucketName := pathParts[0]
	pathName := pathParts[1]

	handle := client.Bucket(bucketName).Object(pathName)

	r, err := handle.NewReader(context.Background())
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return r, nil
}

// OpenTabular opens a local or Google Storage tabular file, transparently
// decompressing it if needed, and sniffs its delimiter. The returned reader
// is positioned at the start of the (decompressed) content. Tabular inputs
// here are small relative to sequence data, so the content is buffered in
// memory to permit the delimiter probe.
func OpenTabular(path string, client *storage.Client) (io.Reader, rune, error) {
	var f io.ReadCloser
	var err error

	if strings.HasPrefix(path, "gs://") {
		f, err = OpenFromGoogleStorage(path, client)
	} else {
		f, err = os.Open(ExpandHome(path))
	}
	if err != nil {
		return nil, 0, pfx.Err(err)
	}
	defer f.Close()

	dr, err := decompressor(bufio.NewReader(f))
	if err != nil {
		return nil, 0, pfx.Err(err)
	}

	content, err := ioutil.ReadAll(dr)
	if err != nil {
		return nil, 0, pfx.Err(err)
	}

	delim := DetermineDelimiter(bytes.NewReader(content))

	return bytes.NewReader(content), delim, nil
}

// ExpandHome expands ~ to its proper path, where appropriate.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			log.Fatalln(pfx.Err(err))
		}
		path = filepath.Join(usr.HomeDir, (path)[2:])
	}

	return path
}
