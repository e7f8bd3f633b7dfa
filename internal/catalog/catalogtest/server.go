// Package catalogtest serves an in-memory release catalog over TLS for tests.
package catalogtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oshokin/paper-fetch/internal/catalog"
	"github.com/oshokin/paper-fetch/internal/transport"
)

// Server is a fake catalog. Configure it before the first request.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	versions  []string
	builds    map[string][]uint32
	names     map[string]string
	artifacts map[string][]byte

	// ProjectRequests counts requests for the project document.
	ProjectRequests atomic.Int32
	// BuildRequests counts requests for build lists.
	BuildRequests atomic.Int32
	// DownloadRequests counts requests for artifact bytes.
	DownloadRequests atomic.Int32
}

// NewServer starts a TLS catalog closed at the end of the test.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		builds:    make(map[string][]uint32),
		names:     make(map[string]string),
		artifacts: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleProject)
	mux.HandleFunc("GET /versions/{version}/builds", s.handleBuilds)
	mux.HandleFunc("GET /versions/{version}/builds/{build}", s.handleDownloadInfo)
	mux.HandleFunc("GET /versions/{version}/builds/{build}/downloads/{name}", s.handleDownload)

	s.Server = httptest.NewTLSServer(mux)
	tb.Cleanup(s.Close)

	return s
}

// AddVersion appends versions to the project document without builds.
func (s *Server) AddVersion(versions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions = append(s.versions, versions...)
}

// AddBuild publishes filename with content as build of version.
// The version is added to the project document on first use.
func (s *Server) AddBuild(version string, build uint32, filename string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builds[version]; !ok {
		s.versions = append(s.versions, version)
	}

	s.builds[version] = append(s.builds[version], build)
	s.names[buildKey(version, build)] = filename
	s.artifacts[filename] = content
}

// Transport returns a client trusting the server certificate.
func (s *Server) Transport() *transport.Client {
	return transport.New(transport.WithHTTPClient(s.Client()))
}

// Catalog returns a catalog client rooted at the server.
func (s *Server) Catalog() *catalog.Client {
	return catalog.NewClient(s.Transport(), s.URL)
}

func (s *Server) handleProject(w http.ResponseWriter, _ *http.Request) {
	s.ProjectRequests.Add(1)

	s.mu.Lock()
	project := catalog.Project{Versions: append([]string{}, s.versions...)}
	s.mu.Unlock()

	writeJSON(w, project)
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	s.BuildRequests.Add(1)

	s.mu.Lock()
	numbers, ok := s.builds[r.PathValue("version")]
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"version not found"}`, http.StatusNotFound)
		return
	}

	builds := catalog.Builds{Builds: make([]catalog.Build, 0, len(numbers))}
	for _, n := range numbers {
		builds.Builds = append(builds.Builds, catalog.Build{Build: n})
	}

	writeJSON(w, builds)
}

func (s *Server) handleDownloadInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name, ok := s.names[r.PathValue("version")+"#"+r.PathValue("build")]
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"build not found"}`, http.StatusNotFound)
		return
	}

	var info catalog.DownloadInfo
	info.Downloads.Application.Name = name

	writeJSON(w, info)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.DownloadRequests.Add(1)

	s.mu.Lock()
	content, ok := s.artifacts[r.PathValue("name")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/java-archive")
	_, _ = w.Write(content)
}

func buildKey(version string, build uint32) string {
	return version + "#" + strconv.FormatUint(uint64(build), 10)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
