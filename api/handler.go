package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"narravid/config"
	"narravid/store"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/shortuuid/v4"
)

// JobStore is the slice of the store the HTTP surface needs.
type JobStore interface {
	Create(inputPath, description, targetLanguage string) (*store.Job, error)
	Get(id string) (*store.Job, error)
	List(limit int) ([]*store.Job, error)
}

// Enqueuer hands created jobs to the pipeline worker pool.
type Enqueuer interface {
	Enqueue(jobID string) error
}

type Handler struct {
	store    JobStore
	enqueuer Enqueuer
	cfg      *config.Config
}

func NewHandler(js JobStore, enqueuer Enqueuer, cfg *config.Config) *Handler {
	return &Handler{store: js, enqueuer: enqueuer, cfg: cfg}
}

type JobRequest struct {
	InputPath      string `json:"inputPath" binding:"required"`
	Description    string `json:"description" binding:"required"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`
}

// handleCreateJob accepts either a multipart upload (video file +
// description/targetLanguage fields) or a JSON body naming a server-local
// video path, creates the job record and enqueues it.
func (h *Handler) handleCreateJob(c *gin.Context) {
	var inputPath, description, targetLanguage string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		saved, err := h.saveUpload(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inputPath = saved
		description = c.PostForm("description")
		targetLanguage = c.PostForm("targetLanguage")
		if description == "" || targetLanguage == "" {
			os.Remove(saved)
			c.JSON(http.StatusBadRequest, gin.H{"error": "description and targetLanguage fields are required"})
			return
		}
	} else {
		var req JobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inputPath = req.InputPath
		description = req.Description
		targetLanguage = req.TargetLanguage
	}

	job, err := h.store.Create(inputPath, description, targetLanguage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job", "details": err.Error()})
		return
	}

	if err := h.enqueuer.Enqueue(job.ID); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID})
}

// saveUpload stores the uploaded video under the output directory after
// checking extension and size.
func (h *Handler) saveUpload(c *gin.Context) (string, error) {
	file, err := c.FormFile("video")
	if err != nil {
		return "", fmt.Errorf("video file is required: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range h.cfg.AllowedVideoExts {
		if ext == "."+strings.TrimPrefix(e, ".") {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("unsupported video format: %s", ext)
	}

	if file.Size > h.cfg.MaxInputSize {
		return "", fmt.Errorf("video size %d exceeds limit of %d bytes", file.Size, h.cfg.MaxInputSize)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := filepath.Join(h.cfg.OutputDir, fmt.Sprintf("%s_upload%s", shortuuid.New(), ext))
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", err
	}
	return dstPath, nil
}

// handleListJobs lists recent jobs.
func (h *Handler) handleListJobs(c *gin.Context) {
	jobs, err := h.store.List(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []*store.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

// jobResponse augments a terminal job with its download URL.
type jobResponse struct {
	*store.Job
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func (h *Handler) buildDownloadURL(c *gin.Context, job *store.Job) string {
	if job.Status != store.StatusCompleted || job.OutputPath == "" {
		return ""
	}

	baseURL := h.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	filename := filepath.Base(job.OutputPath)
	return fmt.Sprintf("%s/api/v1/files/%s", baseURL, filename)
}

// handleGetJob is the polling endpoint: the only way to observe a job's
// terminal state.
func (h *Handler) handleGetJob(c *gin.Context) {
	job, err := h.store.Get(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, jobResponse{Job: job, DownloadURL: h.buildDownloadURL(c, job)})
}

// handleGetFile serves a completed output file.
func (h *Handler) handleGetFile(c *gin.Context) {
	filename := c.Param("filename")

	// Security: Prevent path traversal
	cleanFilename := filepath.Base(filename)
	if cleanFilename != filename {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	fullPath := filepath.Join(h.cfg.OutputDir, cleanFilename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(fullPath)
}
