package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/paper-fetch/internal/integrity"
	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/transport"
	"github.com/oshokin/paper-fetch/internal/version"
)

const (
	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com"

	// ChecksumSuffix names the companion asset holding the binary digest.
	ChecksumSuffix = ".sha256"

	// MaxAssetSize caps the binary held in memory while it is verified.
	MaxAssetSize = 256 << 20

	maxChecksumSize = 4 << 10
)

var (
	errNoAsset        = errors.New("release has no asset for this platform")
	errNoChecksum     = errors.New("release has no checksum for asset")
	errAssetTooLarge  = errors.New("release asset exceeds size limit")
	errInvalidVersion = errors.New("invalid release version")
)

// Asset is one downloadable file of a release.
type Asset struct {
	// Name is the file name, e.g. paper-fetch-linux-amd64.
	Name string `json:"name"`
	// DownloadURL is the public download address.
	DownloadURL string `json:"browser_download_url"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// Release is the subset of the GitHub release document paper-fetch reads.
type Release struct {
	// TagName is the release tag, usually "v" followed by a semantic version.
	TagName string `json:"tag_name"`
	// Assets are the files attached to the release.
	Assets []Asset `json:"assets"`
}

// AssetName returns the binary name published for goos and goarch.
func AssetName(goos, goarch string) string {
	name := version.Name + "-" + goos + "-" + goarch
	if goos == "windows" {
		name += ".exe"
	}

	return name
}

// FindAsset returns the asset named name.
func (r *Release) FindAsset(name string) (*Asset, bool) {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], true
		}
	}

	return nil, false
}

// PlatformAsset returns the binary for the running platform and its checksum companion.
func (r *Release) PlatformAsset() (binary, sum *Asset, err error) {
	name := AssetName(runtime.GOOS, runtime.GOARCH)

	binary, ok := r.FindAsset(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s in %s", errNoAsset, name, r.TagName)
	}

	sum, ok = r.FindAsset(name + ChecksumSuffix)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s in %s", errNoChecksum, name, r.TagName)
	}

	return binary, sum, nil
}

// IsNewer reports whether the release tag is a higher semantic version than current.
// A current version that does not parse is always considered outdated.
func IsNewer(ctx context.Context, tag, current string) (bool, error) {
	latest, err := semver.NewVersion(strings.TrimSpace(tag))
	if err != nil {
		return false, fmt.Errorf("%w %q: %w", errInvalidVersion, tag, err)
	}

	installed, err := semver.NewVersion(strings.TrimSpace(current))
	if err != nil {
		logger.WarnKV(ctx, "Current version is not a semantic version", "version", current, "error", err)
		return true, nil
	}

	return latest.GreaterThan(installed), nil
}

// FetchLatest reads the latest release of repo ("owner/name").
func FetchLatest(ctx context.Context, client *transport.Client, apiURL, repo string) (*Release, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	var (
		release Release
		url     = strings.TrimRight(apiURL, "/") + "/repos/" + repo + "/releases/latest"
	)

	if err := client.GetJSON(ctx, url, "release", &release); err != nil {
		return nil, err
	}

	return &release, nil
}

// fetchAsset downloads an asset into memory, refusing anything above limit bytes.
func fetchAsset(ctx context.Context, client *transport.Client, asset *Asset, limit int64) ([]byte, error) {
	response, err := client.Get(ctx, asset.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", asset.Name, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if err = transport.CheckStatus(response); err != nil {
		return nil, fmt.Errorf("download %s: %w", asset.Name, err)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", asset.Name, err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", errAssetTooLarge, asset.Name)
	}

	return data, nil
}

// parseChecksum reads the digest from a "sha256sum" style line: the hex
// digest, optionally followed by the file name.
func parseChecksum(data []byte) (integrity.Digest, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return integrity.Digest{}, fmt.Errorf("empty checksum file: %w", errNoChecksum)
	}

	return integrity.ParseDigest(fields[0])
}
