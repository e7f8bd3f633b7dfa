package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oshokin/paper-fetch/internal/domain/artifact"
	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/transport"
)

// LatestVersion is the token resolved to the newest catalog version.
const LatestVersion = "latest"

var (
	// ErrNoVersions is returned when the catalog lists no versions.
	ErrNoVersions = errors.New("no versions found")
	// ErrNoBuilds is returned when a version has no builds.
	ErrNoBuilds = errors.New("no builds found")
	// errEmptyVersion is returned for a blank version token.
	errEmptyVersion = errors.New("version must not be empty")
)

// Client issues catalog requests over a shared transport.
type Client struct {
	// transport performs the https requests.
	transport *transport.Client
	// baseURL is the project URL without a trailing slash.
	baseURL string
}

// NewClient creates a catalog client rooted at baseURL.
func NewClient(t *transport.Client, baseURL string) *Client {
	return &Client{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// FetchProject returns the project document with its version list.
func (c *Client) FetchProject(ctx context.Context) (*Project, error) {
	var project Project
	if err := c.transport.GetJSON(ctx, c.baseURL, "project", &project); err != nil {
		return nil, err
	}

	return &project, nil
}

// FetchBuilds returns the build list of version.
func (c *Client) FetchBuilds(ctx context.Context, version string) (*Builds, error) {
	var builds Builds
	if err := c.transport.GetJSON(ctx, c.buildsURL(version), "builds", &builds); err != nil {
		return nil, err
	}

	return &builds, nil
}

// FetchDownloadInfo returns the download document of one build.
func (c *Client) FetchDownloadInfo(ctx context.Context, version string, build uint32) (*DownloadInfo, error) {
	var info DownloadInfo
	if err := c.transport.GetJSON(ctx, c.buildURL(version, build), "download info", &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// ResolveVersion maps "latest" to the last version of the catalog.
// Any other token is returned unchanged without asking the catalog, so an
// unknown version only fails once its builds are requested.
func (c *Client) ResolveVersion(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyVersion
	}

	if token != LatestVersion {
		return token, nil
	}

	project, err := c.FetchProject(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve latest version: %w", err)
	}

	if len(project.Versions) == 0 {
		return "", ErrNoVersions
	}

	version := project.Versions[len(project.Versions)-1]
	logger.InfoKV(ctx, "Resolved latest version", "version", version)

	return version, nil
}

// LatestBuild returns the last build listed for version.
func (c *Client) LatestBuild(ctx context.Context, version string) (uint32, error) {
	builds, err := c.FetchBuilds(ctx, version)
	if err != nil {
		return 0, fmt.Errorf("fetch builds for version %s: %w", version, err)
	}

	if len(builds.Builds) == 0 {
		return 0, fmt.Errorf("%w for version %s", ErrNoBuilds, version)
	}

	return builds.Builds[len(builds.Builds)-1].Build, nil
}

// Descriptor fetches the download document of a build and returns its artifact.
// Nothing is cached; every call asks the catalog again.
func (c *Client) Descriptor(ctx context.Context, version string, build uint32) (*artifact.Descriptor, error) {
	info, err := c.FetchDownloadInfo(ctx, version, build)
	if err != nil {
		return nil, fmt.Errorf("fetch download info for build %d: %w", build, err)
	}

	descriptor, err := artifact.NewDescriptor(version, build, info.Downloads.Application.Name)
	if err != nil {
		return nil, fmt.Errorf("download info for build %d: %w", build, err)
	}

	return descriptor, nil
}

// Resolve runs the whole lookup: version token, latest build, descriptor.
func (c *Client) Resolve(ctx context.Context, token string) (*artifact.Descriptor, error) {
	version, err := c.ResolveVersion(ctx, token)
	if err != nil {
		return nil, err
	}

	build, err := c.LatestBuild(ctx, version)
	if err != nil {
		return nil, err
	}

	return c.Descriptor(ctx, version, build)
}

// DownloadURL returns the address of the artifact bytes.
func (c *Client) DownloadURL(d *artifact.Descriptor) string {
	return c.buildURL(d.Version, d.Build) + "/downloads/" + url.PathEscape(d.Filename)
}

func (c *Client) buildsURL(version string) string {
	return c.baseURL + "/versions/" + url.PathEscape(version) + "/builds"
}

func (c *Client) buildURL(version string, build uint32) string {
	return c.buildsURL(version) + "/" + strconv.FormatUint(uint64(build), 10)
}
