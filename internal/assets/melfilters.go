package assets

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// numpy array files open with this magic.
var npyMagic = []byte("\x93NUMPY")

// VerifyMelFilters checks that path is an npz archive carrying a filter
// bank for nMels channels. npz files are zip archives of .npy members;
// the bank for n channels is stored as mel_<n>.npy.
func VerifyMelFilters(path string, nMels int) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%s: not a readable npz archive: %w", path, err)
	}
	defer zr.Close()

	want := fmt.Sprintf("mel_%d.npy", nMels)
	for _, zf := range zr.File {
		if zf.Name != want {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("%s: open %s: %w", path, want, err)
		}
		defer rc.Close()
		head := make([]byte, len(npyMagic))
		if _, err := io.ReadFull(rc, head); err != nil {
			return fmt.Errorf("%s: read %s: %w", path, want, err)
		}
		if !bytes.Equal(head, npyMagic) {
			return fmt.Errorf("%s: %s is not a numpy array", path, want)
		}
		return nil
	}
	names := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	return fmt.Errorf("%s: missing member %s (archive has: %s)", path, want, strings.Join(names, ", "))
}
