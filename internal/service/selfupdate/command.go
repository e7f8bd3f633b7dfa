package selfupdate

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/paper-fetch/internal/config"
	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/transport"
	"github.com/oshokin/paper-fetch/internal/version"
)

// DefaultFileMode is applied to the replaced binary.
const DefaultFileMode os.FileMode = 0o755

var errOtherInstances = errors.New("other paper-fetch processes are running, stop them or use --force")

// Options are inputs accepted by the self-update entry point.
type Options struct {
	// ConfigPath is the optional path to a YAML or TOML settings file.
	ConfigPath string
	// CheckOnly reports whether an update exists without applying it.
	CheckOnly bool
	// Force skips the running-instance check and applies even when not newer.
	Force bool
	// TargetPath is the binary to replace; the running executable when empty.
	TargetPath string
	// CurrentVersion replaces the build version in the comparison.
	CurrentVersion string
	// APIURL replaces DefaultAPIURL.
	APIURL string
	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// Result describes what a self-update run found and did.
type Result struct {
	// Current is the installed version.
	Current string
	// Latest is the tag of the newest release.
	Latest string
	// Available is true when Latest is newer than Current.
	Available bool
	// Applied is true when the binary was replaced.
	Applied bool
}

// Run checks for a newer release and, unless CheckOnly is set, installs it.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "self-update")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	transportOptions := []transport.Option{transport.WithTimeout(cfg.Timeout)}
	if opts.HTTPClient != nil {
		transportOptions = append(transportOptions, transport.WithHTTPClient(opts.HTTPClient))
	}

	client := transport.New(transportOptions...)

	current := opts.CurrentVersion
	if current == "" {
		current = version.Short()
	}

	release, err := FetchLatest(ctx, client, opts.APIURL, cfg.ReleaseRepo)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}

	available, err := IsNewer(ctx, release.TagName, current)
	if err != nil {
		return nil, err
	}

	result := &Result{Current: current, Latest: release.TagName, Available: available}

	logger.InfoKV(ctx, "Release checked", "current", current, "latest", release.TagName, "available", available)

	if opts.CheckOnly || (!available && !opts.Force) {
		return result, nil
	}

	if !opts.Force {
		if err = ensureNoOtherInstances(ctx); err != nil {
			return result, err
		}
	}

	target, err := targetPath(opts.TargetPath)
	if err != nil {
		return result, err
	}

	if err = apply(ctx, client, release, target); err != nil {
		return result, err
	}

	result.Applied = true

	logger.InfoKV(ctx, "Update applied", "path", target, "version", release.TagName)

	return result, nil
}

// apply downloads the platform binary and swaps it in if its digest matches.
func apply(ctx context.Context, client *transport.Client, release *Release, target string) error {
	binaryAsset, sumAsset, err := release.PlatformAsset()
	if err != nil {
		return err
	}

	sumData, err := fetchAsset(ctx, client, sumAsset, maxChecksumSize)
	if err != nil {
		return err
	}

	digest, err := parseChecksum(sumData)
	if err != nil {
		return fmt.Errorf("parse %s: %w", sumAsset.Name, err)
	}

	logger.InfoKV(ctx, "Downloading release binary", "asset", binaryAsset.Name, "size", binaryAsset.Size)

	data, err := fetchAsset(ctx, client, binaryAsset, MaxAssetSize)
	if err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   digest[:],
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply %s to %s: %w", binaryAsset.Name, target, err)
	}

	oldFileName := target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// ensureNoOtherInstances refuses to replace the binary while another copy runs.
func ensureNoOtherInstances(ctx context.Context) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	var (
		thisProcessID = os.Getpid()
		names         = map[string]struct{}{version.Name: {}, version.Name + ".exe": {}}
	)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if _, found := names[process.Executable()]; found {
			logger.WarnKV(ctx, "Another instance is running", "pid", process.Pid())
			return errOtherInstances
		}
	}

	return nil
}

// targetPath resolves the binary to replace.
func targetPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return filepath.Clean(path), nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate running executable: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(executable)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", executable, err)
	}

	return resolved, nil
}
