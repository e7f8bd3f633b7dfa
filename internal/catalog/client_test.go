package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/paper-fetch/internal/catalog"
	"github.com/oshokin/paper-fetch/internal/catalog/catalogtest"
	"github.com/oshokin/paper-fetch/internal/domain/artifact"
	"github.com/oshokin/paper-fetch/internal/transport"
)

// TestDecodeDocuments checks the JSON field names of every catalog document.
func TestDecodeDocuments(t *testing.T) {
	t.Parallel()

	var project catalog.Project
	require.NoError(t, json.Unmarshal([]byte(`{"versions": ["1.21.1", "1.21"]}`), &project))
	require.Equal(t, []string{"1.21.1", "1.21"}, project.Versions)

	var builds catalog.Builds
	require.NoError(t, json.Unmarshal([]byte(`{"builds": [{"build": 999999}, {"build": 1000000}]}`), &builds))
	require.Equal(t, uint32(1000000), builds.Builds[1].Build)

	var info catalog.DownloadInfo
	require.NoError(t, json.Unmarshal(
		[]byte(`{"downloads": {"application": {"name": "paper-1.21.1-115-af06383.jar"}}}`), &info))
	require.Equal(t, "paper-1.21.1-115-af06383.jar", info.Downloads.Application.Name)
}

// TestResolveVersion_LatestIsLastListed uses catalog order, not string order.
func TestResolveVersion_LatestIsLastListed(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)
	srv.AddVersion("1.21", "1.9.4", "1.20.6")

	version, err := srv.Catalog().ResolveVersion(context.Background(), catalog.LatestVersion)
	require.NoError(t, err)
	require.Equal(t, "1.20.6", version)
}

// TestResolveVersion_ExplicitSkipsCatalog returns explicit tokens without any request.
func TestResolveVersion_ExplicitSkipsCatalog(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)

	version, err := srv.Catalog().ResolveVersion(context.Background(), "1.99.9")
	require.NoError(t, err)
	require.Equal(t, "1.99.9", version)
	require.Zero(t, srv.ProjectRequests.Load())

	_, err = srv.Catalog().ResolveVersion(context.Background(), "  ")
	require.Error(t, err)
}

// TestResolveVersion_NoVersions fails before any build lookup.
func TestResolveVersion_NoVersions(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)

	_, err := srv.Catalog().Resolve(context.Background(), catalog.LatestVersion)
	require.ErrorIs(t, err, catalog.ErrNoVersions)
	require.Contains(t, err.Error(), "no versions found")
	require.EqualValues(t, 1, srv.ProjectRequests.Load())
	require.Zero(t, srv.BuildRequests.Load())
}

// TestLatestBuild picks the last build and names the version when there is none.
func TestLatestBuild(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)
	srv.AddBuild("1.21.1", 100, "paper-1.21.1-100.jar", nil)
	srv.AddBuild("1.21.1", 101, "paper-1.21.1-101.jar", nil)

	build, err := srv.Catalog().LatestBuild(context.Background(), "1.21.1")
	require.NoError(t, err)
	require.Equal(t, uint32(101), build)

	_, err = srv.Catalog().LatestBuild(context.Background(), "0.0.1")
	require.ErrorIs(t, err, transport.ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "0.0.1")
}

// TestLatestBuild_EmptyList reports ErrNoBuilds with the version.
func TestLatestBuild_EmptyList(t *testing.T) {
	t.Parallel()

	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"builds": []}`))
	}))
	defer ts.Close()

	c := catalog.NewClient(transport.New(transport.WithHTTPClient(ts.Client())), ts.URL)

	_, err := c.LatestBuild(context.Background(), "1.21.1")
	require.ErrorIs(t, err, catalog.ErrNoBuilds)
	require.Contains(t, err.Error(), "1.21.1")
}

// TestResolve_DescriptorAndURL walks the full lookup and builds the download URL.
func TestResolve_DescriptorAndURL(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)
	srv.AddBuild("1.20.6", 150, "paper-1.20.6-150.jar", nil)
	srv.AddBuild("1.21.1", 100, "paper-1.21.1-100.jar", nil)
	srv.AddBuild("1.21.1", 119, "paper-1.21.1-119.jar", nil)

	c := srv.Catalog()

	d, err := c.Resolve(context.Background(), catalog.LatestVersion)
	require.NoError(t, err)
	require.Equal(t, &artifact.Descriptor{Version: "1.21.1", Build: 119, Filename: "paper-1.21.1-119.jar"}, d)
	require.Equal(t, srv.URL+"/versions/1.21.1/builds/119/downloads/paper-1.21.1-119.jar", c.DownloadURL(d))
}

// TestDescriptor_RejectsPathInName refuses names that would leave the work directory.
func TestDescriptor_RejectsPathInName(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)
	srv.AddBuild("1.21.1", 100, "../paper-1.21.1-100.jar", nil)

	_, err := srv.Catalog().Descriptor(context.Background(), "1.21.1", 100)
	require.ErrorIs(t, err, artifact.ErrInvalidFilename)
}

// TestFetchProject_MalformedBody surfaces a decode error.
func TestFetchProject_MalformedBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"versions": "not-a-list"}`))
	}))
	defer ts.Close()

	c := catalog.NewClient(transport.New(transport.WithHTTPClient(ts.Client())), ts.URL+"/")

	_, err := c.FetchProject(context.Background())
	require.ErrorIs(t, err, transport.ErrDecode)
}
