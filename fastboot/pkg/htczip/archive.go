package htczip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// Archive is the ZIP collaborator the multizip driver extracts entries
// from. Extract returns os.ErrNotExist (possibly wrapped) when the
// archive has no entry of that name, which ends the iteration.
type Archive interface {
	Extract(name string) ([]byte, error)
	Close() error
}

// OpenArchive opens a ZIP file from disk as an Archive.
func OpenArchive(path string) (Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("htczip: open archive: %w", err)
	}
	return &zipArchive{r: &rc.Reader, closer: rc}, nil
}

// ArchiveFromReader wraps an in-memory or already-open ZIP.
func ArchiveFromReader(r io.ReaderAt, size int64) (Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("htczip: read archive: %w", err)
	}
	return &zipArchive{r: zr}, nil
}

type zipArchive struct {
	r      *zip.Reader
	closer io.Closer
}

func (z *zipArchive) Extract(name string) ([]byte, error) {
	for _, f := range z.r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("htczip: open entry %q: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("htczip: extract entry %q: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("htczip: entry %q: %w", name, os.ErrNotExist)
}

func (z *zipArchive) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}
