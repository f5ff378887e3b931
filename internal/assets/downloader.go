package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
)

const archiveSuffix = ".tar.gz"

var (
	// ErrUnsafePath indicates an asset id or archive entry that would
	// escape the target directory.
	ErrUnsafePath = errors.New("unsafe path")

	// ErrNoBaseURL indicates a downloader without a bucket URL.
	ErrNoBaseURL = errors.New("asset base URL is not configured")
)

// Request describes one asset to make available locally.
type Request struct {
	AssetID string
	// SubassetID selects a path inside an unpacked archive. Optional.
	SubassetID string
	TargetDir  string
	// InitMessage is logged when TargetDir does not exist yet. A single %s
	// verb, if present, is replaced with TargetDir.
	InitMessage string
}

// Loader ensures an asset is present locally and returns its path.
type Loader interface {
	Load(ctx context.Context, req Request) (string, error)
}

// StatusError is returned for non-200 download responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s failed with status %d", e.URL, e.StatusCode)
}

// MissingSubassetError reports a subasset absent from an unpacked archive.
type MissingSubassetError struct {
	AssetID    string
	SubassetID string
	Path       string
}

func (e *MissingSubassetError) Error() string {
	return fmt.Sprintf("subasset %q was not found in asset %q (looked for %s)", e.SubassetID, e.AssetID, e.Path)
}

// HTTPDownloader fetches assets from a public bucket over HTTP.
type HTTPDownloader struct {
	baseURL  string
	client   *http.Client
	attempts uint
	delay    time.Duration
	logger   *logging.Logger
}

// Option configures an HTTPDownloader.
type Option func(*HTTPDownloader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *HTTPDownloader) { d.client = c }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(d *HTTPDownloader) {
		if attempts > 0 {
			d.attempts = attempts
		}
		d.delay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *HTTPDownloader) { d.logger = l }
}

// NewHTTPDownloader creates a downloader for the bucket at baseURL.
func NewHTTPDownloader(baseURL string, opts ...Option) *HTTPDownloader {
	d := &HTTPDownloader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Minute},
		attempts: 3,
		delay:    time.Second,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load implements Loader. An asset already present on disk is never
// downloaded again.
func (d *HTTPDownloader) Load(ctx context.Context, req Request) (string, error) {
	if req.TargetDir == "" {
		return "", fmt.Errorf("asset %q: target directory is required", req.AssetID)
	}
	if err := validateAssetID(req.AssetID); err != nil {
		return "", err
	}

	if err := d.ensureTargetDir(ctx, req); err != nil {
		return "", err
	}

	isArchive := strings.HasSuffix(req.AssetID, archiveSuffix)
	localPath := filepath.Join(req.TargetDir, strings.TrimSuffix(req.AssetID, archiveSuffix))

	if req.SubassetID != "" && !isArchive {
		return "", fmt.Errorf("asset %q is not an archive; subasset %q cannot be selected", req.AssetID, req.SubassetID)
	}

	if _, err := os.Stat(localPath); err == nil {
		d.logger.Debug(ctx, "asset already present", zap.String("path", localPath))
	} else if errors.Is(err, os.ErrNotExist) {
		if err := d.fetch(ctx, req.AssetID, localPath, isArchive); err != nil {
			return "", err
		}
	} else {
		return "", fmt.Errorf("checking %s: %w", localPath, err)
	}

	if req.SubassetID == "" {
		return localPath, nil
	}

	subPath, err := safeJoin(localPath, req.SubassetID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(subPath); err != nil {
		return "", &MissingSubassetError{AssetID: req.AssetID, SubassetID: req.SubassetID, Path: subPath}
	}
	return subPath, nil
}

func (d *HTTPDownloader) ensureTargetDir(ctx context.Context, req Request) error {
	if _, err := os.Stat(req.TargetDir); err == nil {
		return nil
	}
	if req.InitMessage != "" {
		msg := req.InitMessage
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, req.TargetDir)
		}
		d.logger.Info(ctx, msg)
	}
	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", req.TargetDir, err)
	}
	return nil
}

// fetch downloads assetID into a temp file next to localPath, then moves it
// (or its unpacked contents) into place so partial downloads never appear
// under the final name.
func (d *HTTPDownloader) fetch(ctx context.Context, assetID, localPath string, isArchive bool) error {
	if d.baseURL == "" {
		return ErrNoBaseURL
	}
	assetURL := d.baseURL + "/" + (&url.URL{Path: assetID}).EscapedPath()

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	d.logger.Info(ctx, "downloading asset", zap.String("asset", assetID), zap.String("url", assetURL))
	start := time.Now()

	err = retry.Do(
		func() error {
			if _, err := tmp.Seek(0, io.SeekStart); err != nil {
				return retry.Unrecoverable(err)
			}
			if err := tmp.Truncate(0); err != nil {
				return retry.Unrecoverable(err)
			}
			return d.download(ctx, assetURL, tmp)
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn(ctx, "asset download failed, retrying",
				zap.String("asset", assetID), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("downloading asset %q: %w", assetID, err)
	}

	if !isArchive {
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("closing download: %w", err)
		}
		if err := os.Rename(tmp.Name(), localPath); err != nil {
			return fmt.Errorf("moving download into place: %w", err)
		}
		d.logger.Info(ctx, "asset downloaded", zap.String("path", localPath), zap.Duration("took", time.Since(start)))
		return nil
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding download: %w", err)
	}
	staging, err := os.MkdirTemp(dir, ".unpack-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	files, err := extractTarGz(tmp, staging)
	if err != nil {
		return fmt.Errorf("extracting asset %q: %w", assetID, err)
	}
	if err := os.Rename(staging, localPath); err != nil {
		return fmt.Errorf("moving unpacked asset into place: %w", err)
	}
	d.logger.Info(ctx, "asset downloaded and unpacked",
		zap.String("path", localPath), zap.Int("files", files), zap.Duration("took", time.Since(start)))
	return nil
}

func (d *HTTPDownloader) download(ctx context.Context, assetURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{URL: assetURL, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return retry.Unrecoverable(statusErr)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return nil
}

// validateAssetID rejects ids that would resolve outside the target dir.
func validateAssetID(id string) error {
	if id == "" {
		return errors.New("asset id is required")
	}
	if filepath.IsAbs(id) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, id)
	}
	for _, part := range strings.Split(filepath.ToSlash(id), "/") {
		if part == ".." {
			return fmt.Errorf("%w: %s", ErrUnsafePath, id)
		}
	}
	return nil
}
