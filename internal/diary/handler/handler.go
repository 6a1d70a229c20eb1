package handler

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/couplediary/diary/internal/diary/service"
	"github.com/couplediary/diary/internal/render"
	"github.com/couplediary/diary/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexPage []byte

const (
	DefaultPartner1 = "Partner 1"
	DefaultPartner2 = "Partner 2"
)

// Limits bound what POST /generate accepts.
type Limits struct {
	MinImages     int
	MaxImages     int
	MaxImageBytes int64
}

func DefaultLimits() Limits {
	return Limits{MinImages: 2, MaxImages: 10, MaxImageBytes: 10 << 20}
}

// maxBody leaves room for form fields and multipart framing.
func (l Limits) maxBody() int64 {
	return int64(l.MaxImages)*l.MaxImageBytes + 1<<20
}

var errNotImage = errors.New("Only image files are allowed!")

var log = logger.For("http")

// RegisterDiaryRoutes mounts the upload page, the generate endpoint and the
// diary viewer. createMW runs in front of POST /generate only.
func RegisterDiaryRoutes(r *gin.Engine, svc service.Service, rnd *render.Renderer, limits Limits, createMW ...gin.HandlerFunc) {
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})

	generate := func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limits.maxBody())
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}
		files := form.File["images"]
		if len(files) < limits.MinImages {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At least %d images are required", limits.MinImages)})
			return
		}
		if len(files) > limits.MaxImages {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d images are allowed", limits.MaxImages)})
			return
		}
		images, err := readImages(files, limits.MaxImageBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p1 := displayName(c.PostForm("partner1"), DefaultPartner1)
		p2 := displayName(c.PostForm("partner2"), DefaultPartner2)
		page, err := rnd.Render(p1, p2, images)
		if err != nil {
			log.Errorf("render diary: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate diary"})
			return
		}

		slug, err := svc.Create(c.Request.Context(), service.NewDiary{
			Partner1:    p1,
			Partner2:    p2,
			Payload:     page,
			ContentType: render.ContentType,
		})
		if err != nil {
			log.Errorf("store diary for %q/%q: %v", p1, p2, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate diary"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "slug": slug, "url": "/diaries/" + slug})
	}
	r.POST("/generate", append(createMW, generate)...)

	r.GET("/diaries/:slug", func(c *gin.Context) {
		d, err := svc.Resolve(c.Request.Context(), c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "diary not found"})
			return
		}
		ct := d.ContentType
		if ct == "" {
			ct = render.ContentType
		}
		c.Data(http.StatusOK, ct, d.Payload)
	})
}

func displayName(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

// readImages loads every upload and keeps only real images, judged by
// content rather than by the client-supplied header.
func readImages(files []*multipart.FileHeader, maxBytes int64) ([]render.Image, error) {
	out := make([]render.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxBytes {
			return nil, fmt.Errorf("image %q is larger than %d bytes", fh.Filename, maxBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %q", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %q", fh.Filename)
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("image %q is larger than %d bytes", fh.Filename, maxBytes)
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			return nil, errNotImage
		}
		out = append(out, render.Image{MIMEType: mt.String(), Data: data})
	}
	return out, nil
}
