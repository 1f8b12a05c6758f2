package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// maxZIPEntryBytes caps the decompressed size of a single archive entry.
const maxZIPEntryBytes = 128 << 20

// ZIPEntry is one decompressed file of an archive.
type ZIPEntry struct {
	Name string
	Data []byte
}

// ReadZIP decompresses the files of an in-memory archive whose names satisfy
// match, in archive order. A nil match selects every file. Directories are
// skipped.
func ReadZIP(data []byte, match func(name string) bool) ([]ZIPEntry, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var entries []ZIPEntry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if match != nil && !match(f.Name) {
			continue
		}
		b, err := readZIPEntry(f)
		if err != nil {
			return entries, err
		}
		entries = append(entries, ZIPEntry{Name: f.Name, Data: b})
	}
	return entries, nil
}

// IsZIP reports whether data starts with the local file header signature.
func IsZIP(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// MatchSuffix returns a matcher for names ending in suffix, optionally
// restricted to paths containing dir. Comparison is case-insensitive.
func MatchSuffix(dir, suffix string) func(string) bool {
	dir, suffix = strings.ToLower(dir), strings.ToLower(suffix)
	return func(name string) bool {
		n := strings.ToLower(name)
		return strings.HasSuffix(n, suffix) && (dir == "" || strings.Contains(n, dir))
	}
}

func readZIPEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(rc, maxZIPEntryBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "zip: read entry %s", f.Name)
	}
	if len(b) > maxZIPEntryBytes {
		return nil, eris.Errorf("zip: entry %s exceeds %d bytes", f.Name, maxZIPEntryBytes)
	}
	return b, nil
}
