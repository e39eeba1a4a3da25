// Package assets keeps the static Whisper files present in the Triton
// model repository: the multilingual tokenizer vocabulary used by the
// BLS scorer and the mel filter bank used by feature extraction.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"whisperctl/internal/common/fsutil"
	"whisperctl/pkg/types"
)

const (
	TokenizerName  = "multilingual.tiktoken"
	MelFiltersName = "mel_filters.npz"

	DefaultTokenizerURL  = "https://raw.githubusercontent.com/openai/whisper/main/whisper/assets/multilingual.tiktoken"
	DefaultMelFiltersURL = "https://raw.githubusercontent.com/openai/whisper/main/whisper/assets/mel_filters.npz"
)

// Asset is one remote file pinned to a destination directory.
type Asset struct {
	Name string // file name at the destination
	URL  string
	Dir  string // destination directory
}

// Path returns the asset's full destination path.
func (a Asset) Path() string { return filepath.Join(a.Dir, a.Name) }

// Overrides swaps upstream URLs for mirrors. Destination names stay
// fixed so the serving layout does not depend on the mirror's path shape.
type Overrides struct {
	TokenizerURL  string
	MelFiltersURL string
}

// Defaults returns the two reference assets rooted under modelRepo: the
// tokenizer vocabulary for infer_bls/1 and the mel filter bank for
// whisper_medium/1.
func Defaults(modelRepo string) []Asset {
	return DefaultsWith(modelRepo, Overrides{})
}

// DefaultsWith is Defaults with mirror URL overrides applied.
func DefaultsWith(modelRepo string, o Overrides) []Asset {
	tokURL := DefaultTokenizerURL
	if o.TokenizerURL != "" {
		tokURL = o.TokenizerURL
	}
	melURL := DefaultMelFiltersURL
	if o.MelFiltersURL != "" {
		melURL = o.MelFiltersURL
	}
	return []Asset{
		{Name: TokenizerName, URL: tokURL, Dir: filepath.Join(modelRepo, "infer_bls", "1")},
		{Name: MelFiltersName, URL: melURL, Dir: filepath.Join(modelRepo, "whisper_medium", "1")},
	}
}

// Fetcher downloads assets with no-clobber semantics: a file already at
// its destination is never re-fetched or overwritten.
type Fetcher struct {
	client *http.Client
	log    zerolog.Logger
}

// NewFetcher builds a Fetcher. A nil client gets a default with a long
// timeout; the assets are small but some hosts are slow.
func NewFetcher(client *http.Client, log zerolog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{client: client, log: log}
}

// Ensure makes a single asset present and reports whether a download
// happened. False with a nil error means the file was already there.
func (f *Fetcher) Ensure(ctx context.Context, a Asset) (bool, error) {
	dest := a.Path()
	if fsutil.IsRegularFile(dest) {
		f.log.Debug().Str("asset", a.Name).Str("path", dest).Msg("asset present, skipping fetch")
		return false, nil
	}
	if err := fsutil.EnsureDir(a.Dir); err != nil {
		return false, ErrFetch(a, err)
	}
	if err := f.download(ctx, a, dest); err != nil {
		return false, ErrFetch(a, err)
	}
	f.log.Info().Str("asset", a.Name).Str("url", a.URL).Str("path", dest).Msg("asset fetched")
	return true, nil
}

// EnsureAll fetches the assets in order, stopping at the first failure.
// The returned statuses cover every asset attempted so far.
func (f *Fetcher) EnsureAll(ctx context.Context, as []Asset) ([]types.AssetStatus, error) {
	statuses := make([]types.AssetStatus, 0, len(as))
	for _, a := range as {
		wasPresent := fsutil.IsRegularFile(a.Path())
		fetched, err := f.Ensure(ctx, a)
		statuses = append(statuses, types.AssetStatus{
			Name:      a.Name,
			URL:       a.URL,
			Path:      a.Path(),
			Present:   wasPresent || fetched,
			Fetched:   fetched,
			SizeBytes: fsutil.FileSize(a.Path()),
		})
		if err != nil {
			return statuses, err
		}
	}
	return statuses, nil
}

func (f *Fetcher) download(ctx context.Context, a Asset, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	// write to a temp name first; a torn download must not satisfy the
	// presence check on a re-run
	tmp, err := os.CreateTemp(a.Dir, "."+a.Name+".partial-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// fetchError carries the asset whose download failed.
type fetchError struct {
	asset Asset
	err   error
}

func (e fetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.asset.Name, e.asset.URL, e.err)
}

func (e fetchError) Unwrap() error { return e.err }

// ErrFetch constructs a fetchError.
func ErrFetch(a Asset, err error) error { return fetchError{asset: a, err: err} }

// IsFetchError reports whether err came from an asset download.
func IsFetchError(err error) bool {
	var fe fetchError
	return errors.As(err, &fe)
}
