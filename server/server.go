// Package server exposes the optimization pipeline over HTTP.
//
// The binary archive travels in the response body; the structured report
// travels alongside it in the X-Optimization-Report header, which is the
// contract existing consumers rely on. Batch-level failures map to typed
// JSON error responses and never a partial archive.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Marwanelaks/optimize"
	"github.com/Marwanelaks/optimize/fetch"
)

// ReportHeader carries the JSON-encoded optimization report next to the
// binary archive response.
const ReportHeader = "X-Optimization-Report"

// DefaultMaxUploadBytes bounds uploaded archive payloads (compressed size).
const DefaultMaxUploadBytes = 50 * 1024 * 1024

// Config holds server tuning.
type Config struct {
	// MaxUploadBytes caps the accepted upload payload size. Zero means
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Server wires the pipeline and the fetch collaborator into HTTP handlers.
type Server struct {
	pipeline *optimize.Pipeline
	logger   *zap.Logger
	cfg      Config
}

// New creates a Server. A nil logger disables logging.
func New(p *optimize.Pipeline, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{pipeline: p, logger: logger, cfg: cfg}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.POST("/optimize/upload", s.handleUpload)
	engine.POST("/optimize/github", s.handleGitHub)

	return engine
}

// handleUpload optimizes an uploaded zip archive. The archive arrives as a
// multipart file field named "file" or, absent that, as the raw body.
func (s *Server) handleUpload(c *gin.Context) {
	payload, err := s.readUpload(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out, report, err := s.pipeline.OptimizeArchive(c.Request.Context(), payload)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeArchive(c, out, report)
}

// githubRequest is the /optimize/github request body.
type githubRequest struct {
	// URL is any cloneable git URL. Mutually exclusive with Owner/Repo.
	URL string `json:"url"`

	// Owner and Repo select a GitHub repository fetched via the API
	// zipball endpoint. Ref is optional (branch, tag, or SHA).
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Ref   string `json:"ref"`
}

// handleGitHub fetches a remote repository tree and optimizes it.
func (s *Server) handleGitHub(c *gin.Context) {
	var req githubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "kind": "bad_request"})
		return
	}

	var (
		files []optimize.SourceFile
		err   error
	)
	switch {
	case req.URL != "":
		files, err = fetch.CloneTree(c.Request.Context(), req.URL, fetch.CloneOptions{})
	case req.Owner != "" && req.Repo != "":
		files, err = fetch.GitHubArchive(c.Request.Context(), nil, req.Owner, req.Repo, req.Ref, optimize.ReadOptions{})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "url or owner/repo required", "kind": "bad_request"})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	res, err := s.pipeline.Run(c.Request.Context(), files)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Writer.Header().Set(ReportHeader, mustEncodeReport(res.Report))
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="optimized-website.zip"`)
	c.Writer.Header().Set("Content-Type", "application/zip")
	c.Status(http.StatusOK)
	if err := optimize.WriteArchive(c.Writer, res.Outcomes); err != nil {
		s.logger.Error("streaming archive failed", zap.Error(err))
	}
}

// readUpload extracts the archive payload, preferring the multipart "file"
// field and falling back to the raw request body.
func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	limit := s.cfg.MaxUploadBytes

	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > limit {
			return nil, optimize.NewPipelineError("upload", fh.Filename, optimize.ErrArchiveTooLarge)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readBounded(f, limit)
	}

	return readBounded(c.Request.Body, limit)
}

func readBounded(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, optimize.NewPipelineError("upload", "", optimize.ErrArchiveTooLarge)
	}
	return data, nil
}

// writeArchive sends the optimized archive with the report attached.
func (s *Server) writeArchive(c *gin.Context, archive []byte, report optimize.Report) {
	c.Writer.Header().Set(ReportHeader, mustEncodeReport(report))
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="optimized-website.zip"`)
	c.Data(http.StatusOK, "application/zip", archive)
}

// writeError maps the pipeline error taxonomy to HTTP responses. Every
// batch-level error yields a structured body with a stable "kind".
func (s *Server) writeError(c *gin.Context, err error) {
	status, kind := classifyError(err)
	s.logger.Warn("request failed",
		zap.String("path", c.FullPath()),
		zap.String("kind", kind),
		zap.Error(err),
	)
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, optimize.ErrArchiveTooLarge):
		return http.StatusRequestEntityTooLarge, "archive_too_large"
	case errors.Is(err, optimize.ErrCorruptArchive):
		return http.StatusBadRequest, "corrupt_archive"
	case errors.Is(err, optimize.ErrEmptyArchive):
		return http.StatusBadRequest, "empty_archive"
	case errors.Is(err, optimize.ErrUnsafePath):
		return http.StatusBadRequest, "unsafe_path"
	case errors.Is(err, optimize.ErrSourceFetchFailed):
		return http.StatusBadGateway, "source_fetch_failed"
	case errors.Is(err, optimize.ErrBatchTimeout):
		return http.StatusGatewayTimeout, "batch_timeout"
	case errors.Is(err, optimize.ErrBatchAborted):
		return http.StatusGatewayTimeout, "batch_aborted"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func mustEncodeReport(r optimize.Report) string {
	b, err := json.Marshal(r)
	if err != nil {
		// Report is a plain struct of scalars, maps, and slices; this
		// cannot fail at runtime.
		return "{}"
	}
	return string(b)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
