package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"chirpnet/internal/config"
	"chirpnet/internal/middleware"
	"chirpnet/internal/models"
	"chirpnet/internal/observability"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "uploads/images"
	DefaultImageMaxUploadSizeMB = 10
	PostImageMaxSize            = 2048
	ProfileImageMaxSize         = 300
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

// ImageStore is the object store uploaded images end up in. Put returns the
// public URL of the stored object.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalImageStore keeps images on disk below dir. The server exposes dir at
// /media/i.
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	if dir == "" {
		dir = DefaultImageUploadDir
	}
	return &LocalImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the directory images are written to.
func (s *LocalImageStore) Dir() string {
	return s.dir
}

func (s *LocalImageStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return s.baseURL + "/media/i/" + filepath.ToSlash(key), nil
}

func (s *LocalImageStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalImageStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}

// UploadedImage describes a stored image.
type UploadedImage struct {
	Hash    string
	URL     string
	WebPURL string
	Width   int
	Height  int
}

type ImageService struct {
	store              ImageStore
	maxUploadSizeBytes int64
}

func NewImageService(store ImageStore, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Upload decodes payload, a data URI or bare base64 string, scales it to fit
// within maxSize on both axes and stores a JPEG master plus a WebP copy.
func (s *ImageService) Upload(ctx context.Context, userID uint, payload string, maxSize int) (img *UploadedImage, err error) {
	ctx, span := observability.StartSpan(ctx, "ImageService", "Upload",
		attribute.Int("user.id", int(userID)),
		attribute.Int("image.max_size", maxSize),
	)
	defer func() {
		observability.EndSpan(span, err)
		result := "success"
		if err != nil {
			result = "error"
		}
		middleware.ImageUploads.WithLabelValues(result).Inc()
	}()

	declared, content, err := decodeImagePayload(payload)
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}
	if declared != "" && !isMatchingContentType(declared, detected) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	master := resizeToFit(decoded, maxSize, maxSize)
	jpg, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	wp, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hash := buildImageHash(userID, jpg)
	url, err := s.store.Put(ctx, hash+"/master.jpg", jpg)
	if err != nil {
		return nil, models.NewUploadError(err)
	}
	webpURL, err := s.store.Put(ctx, hash+"/master.webp", wp)
	if err != nil {
		_ = s.store.Delete(ctx, hash+"/master.jpg")
		return nil, models.NewUploadError(err)
	}

	b := master.Bounds()
	return &UploadedImage{
		Hash:    hash,
		URL:     url,
		WebPURL: webpURL,
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// decodeImagePayload splits an optional data URI header from the base64 body.
func decodeImagePayload(payload string) (declared string, content []byte, err error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", nil, models.NewValidationError("Image is required")
	}

	data := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, models.NewValidationError("Invalid image encoding")
		}
		declared = normalizeContentType(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"))
		data = body
	}

	content, err = base64.StdEncoding.DecodeString(data)
	if err != nil {
		if content, err = base64.RawStdEncoding.DecodeString(data); err != nil {
			return "", nil, models.NewValidationError("Invalid image encoding")
		}
	}
	if len(content) == 0 {
		return "", nil, models.NewValidationError("Image is required")
	}
	return declared, content, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func buildImageHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
