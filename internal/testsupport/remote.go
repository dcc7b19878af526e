package testsupport

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"loopctl/internal/remote"
)

// Request records one call received by the fake service.
type Request struct {
	Method    string
	Path      string
	Body      string
	RequestID string
}

type failure struct {
	code   int
	detail string
	once   bool
}

// Remote is an in-process stand-in for the streaming service control API.
// It behaves like the real service (start/stop state machine, video
// directory, config file) and lets tests inject failures and latency.
type Remote struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	status   remote.RunStatus
	config   map[string]any
	videos   map[string]int
	failures map[string]failure
	delays   map[string]time.Duration
	requests []Request
}

// NewRemote starts a fake service that is shut down when the test ends.
func NewRemote(t testing.TB) *Remote {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := &Remote{
		t:        t,
		status:   remote.RunStatus{Status: remote.StatusStopped},
		config:   map[string]any{},
		videos:   map[string]int{},
		failures: map[string]failure{},
		delays:   map[string]time.Duration{},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), r.intercept)
	engine.GET("/status", r.getStatus)
	engine.POST("/start", r.start)
	engine.POST("/stop", r.stop)
	engine.GET("/config", r.getConfig)
	engine.POST("/config", r.saveConfig)
	engine.GET("/videos", r.listVideos)
	engine.DELETE("/videos/:filename", r.deleteVideo)
	engine.POST("/upload", r.upload)

	r.server = httptest.NewServer(engine)
	t.Cleanup(r.server.Close)
	return r
}

// URL returns the service base URL.
func (r *Remote) URL() string {
	return r.server.URL
}

// Close shuts the service down early so later requests fail at the network layer.
func (r *Remote) Close() {
	r.server.Close()
}

// SetStatus replaces the reported run status.
func (r *Remote) SetStatus(status remote.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// SetConfig replaces the stored configuration document verbatim.
func (r *Remote) SetConfig(cfg map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = maps.Clone(cfg)
}

// Config returns the stored configuration document.
func (r *Remote) Config() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.config)
}

// AddVideo places a file of sizeBytes in the video directory.
func (r *Remote) AddVideo(name string, sizeBytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[name] = sizeBytes
}

// HasVideo reports whether name is in the video directory.
func (r *Remote) HasVideo(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.videos[name]
	return ok
}

// Fail makes every request to method+route answer code with detail until
// Recover is called.
func (r *Remote) Fail(method, route string, code int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method+" "+route] = failure{code: code, detail: detail}
}

// FailNext makes only the next request to method+route fail.
func (r *Remote) FailNext(method, route string, code int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method+" "+route] = failure{code: code, detail: detail, once: true}
}

// Recover clears injected failures for method+route.
func (r *Remote) Recover(method, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, method+" "+route)
}

// Delay holds every answer to method+route for d.
func (r *Remote) Delay(method, route string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays[method+" "+route] = d
}

// Requests returns every request received so far.
func (r *Remote) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.requests)
}

// Count returns how many requests hit method+route.
func (r *Remote) Count(method, route string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.Method == method && routeOf(req.Path) == route {
			n++
		}
	}
	return n
}

func routeOf(p string) string {
	if strings.HasPrefix(p, "/videos/") {
		return "/videos/:filename"
	}
	return p
}

func (r *Remote) intercept(c *gin.Context) {
	var body string
	if c.Request.Body != nil && c.ContentType() == "application/json" {
		data, _ := io.ReadAll(c.Request.Body)
		body = string(data)
		c.Request.Body = io.NopCloser(strings.NewReader(body))
	}

	key := c.Request.Method + " " + c.FullPath()
	r.mu.Lock()
	r.requests = append(r.requests, Request{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Body:      body,
		RequestID: c.GetHeader("X-Request-ID"),
	})
	fail, failing := r.failures[key]
	if failing && fail.once {
		delete(r.failures, key)
	}
	delay := r.delays[key]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if failing {
		c.AbortWithStatusJSON(fail.code, gin.H{"detail": fail.detail})
		return
	}
	c.Next()
}

func (r *Remote) getStatus(c *gin.Context) {
	r.mu.Lock()
	status := r.status
	r.mu.Unlock()
	c.JSON(http.StatusOK, status)
}

func (r *Remote) start(c *gin.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Stream is already running"})
		return
	}
	now := time.Now()
	r.status = remote.RunStatus{
		Running:     true,
		Status:      remote.StatusStreaming,
		StartTime:   remote.Timestamp{Time: now},
		NextRestart: remote.Timestamp{Time: now.Add(time.Hour)},
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stream started"})
}

func (r *Remote) stop(c *gin.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.Running {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Stream is not running"})
		return
	}
	r.status = remote.RunStatus{Status: remote.StatusStopped}
	c.JSON(http.StatusOK, gin.H{"message": "Stream stopped"})
}

func (r *Remote) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, r.Config())
}

func (r *Remote) saveConfig(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	for _, required := range []string{"stream_key", "video_file", "stream_duration", "upload_pause", "rtmp_url"} {
		if doc[required] == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("field required: %s", required)})
			return
		}
	}
	r.SetConfig(doc)
	c.JSON(http.StatusOK, gin.H{"message": "Configuration updated"})
}

func (r *Remote) listVideos(c *gin.Context) {
	r.mu.Lock()
	names := slices.Sorted(maps.Keys(r.videos))
	videos := make([]remote.VideoFile, 0, len(names))
	for _, name := range names {
		videos = append(videos, remote.VideoFile{
			Name:   name,
			Path:   path.Join("videos", name),
			SizeMB: float64(r.videos[name]) / (1024 * 1024),
		})
	}
	r.mu.Unlock()
	c.JSON(http.StatusOK, videos)
}

func (r *Remote) deleteVideo(c *gin.Context) {
	name := c.Param("filename")
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid filename"})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[name]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "File not found"})
		return
	}
	delete(r.videos, name)
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "filename": name})
}

func (r *Remote) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "field required: file"})
		return
	}
	location := path.Join("videos", header.Filename)
	r.AddVideo(header.Filename, int(header.Size))
	c.JSON(http.StatusOK, gin.H{
		"info": fmt.Sprintf("file '%s' saved at '%s'", header.Filename, location),
		"path": location,
	})
}
