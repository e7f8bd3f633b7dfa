package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/transport"
)

const (
	// DefaultBufferSize is the size of the buffered writer in front of the file.
	DefaultBufferSize = 64 << 10
	// DefaultProgressInterval is how many bytes pass between progress reports.
	DefaultProgressInterval = 256 << 10

	readChunkSize = 32 << 10
	tempSuffix    = ".part"
)

// ErrShortWrite is returned when fewer bytes arrived than the server announced.
var ErrShortWrite = errors.New("transfer ended before Content-Length bytes were received")

// Getter issues GET requests. *transport.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// ProgressFunc receives the byte count written so far and the expected total.
// total is -1 when the server sent no Content-Length.
type ProgressFunc func(downloaded, total int64)

// Downloader writes response bodies to files.
type Downloader struct {
	client           Getter
	bufferSize       int
	progressInterval int64
	progress         ProgressFunc
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithProgress reports transfer progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Downloader) {
		d.progress = fn
	}
}

// WithBufferSize replaces DefaultBufferSize.
func WithBufferSize(size int) Option {
	return func(d *Downloader) {
		if size > 0 {
			d.bufferSize = size
		}
	}
}

// WithProgressInterval replaces DefaultProgressInterval.
func WithProgressInterval(interval int64) Option {
	return func(d *Downloader) {
		if interval > 0 {
			d.progressInterval = interval
		}
	}
}

// New returns a Downloader fetching through client.
func New(client Getter, opts ...Option) *Downloader {
	d := &Downloader{
		client:           client,
		bufferSize:       DefaultBufferSize,
		progressInterval: DefaultProgressInterval,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download stores the body of rawURL at dest. It does nothing when dest
// already exists; checking that file is up to the caller.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		logger.InfoKV(ctx, "File already exists, skipping download", "path", dest)
		return nil
	}

	if _, err := transport.ValidateSecureURL(rawURL); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	response, err := d.client.Get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if err = transport.CheckStatus(response); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	logger.InfoKV(ctx, "Downloading", "url", rawURL, "path", dest, "size", response.ContentLength)

	written, err := d.writeAtomically(ctx, response.Body, response.ContentLength, dest)
	if err != nil {
		return fmt.Errorf("download %s to %s: %w", rawURL, dest, err)
	}

	logger.InfoKV(ctx, "Download complete", "path", dest, "bytes", written)

	return nil
}

// writeAtomically copies body into a temporary file and renames it to dest.
func (d *Downloader) writeAtomically(ctx context.Context, body io.Reader, total int64, dest string) (int64, error) {
	dir, base := filepath.Split(filepath.Clean(dest))
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("create temporary file in %s: %w", dir, err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		if committed {
			return
		}

		_ = tmp.Close()

		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Failed to remove partial download", "path", tmpName, "error", removeErr)
		}
	}()

	written, err := d.copy(ctx, tmp, body, total)
	if err != nil {
		return written, fmt.Errorf("write %s: %w", tmpName, err)
	}

	if total >= 0 && written != total {
		return written, fmt.Errorf("%w: got %d of %d bytes", ErrShortWrite, written, total)
	}

	if err = tmp.Sync(); err != nil {
		return written, fmt.Errorf("sync %s: %w", tmpName, err)
	}

	if err = tmp.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err = os.Rename(tmpName, dest); err != nil {
		return written, fmt.Errorf("rename %s to %s: %w", tmpName, dest, err)
	}

	committed = true

	return written, nil
}

// copy streams body through a buffered writer and reports progress.
func (d *Downloader) copy(ctx context.Context, f *os.File, body io.Reader, total int64) (int64, error) {
	var (
		w            = bufio.NewWriterSize(f, d.bufferSize)
		chunk        = make([]byte, readChunkSize)
		written      int64
		nextProgress = d.progressInterval
	)

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := body.Read(chunk)
		if n > 0 {
			if _, err := w.Write(chunk[:n]); err != nil {
				return written, err
			}

			written += int64(n)

			if d.progress != nil && written >= nextProgress {
				d.progress(written, total)
				nextProgress = written + d.progressInterval
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return written, readErr
		}
	}

	if err := w.Flush(); err != nil {
		return written, err
	}

	if d.progress != nil {
		d.progress(written, total)
	}

	return written, nil
}
