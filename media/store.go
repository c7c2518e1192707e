package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/semaphore"
)

// ErrRejected marks a per-file rejection (disallowed extension or unreadable
// image data). It is never a hard failure of the surrounding submission; the
// caller skips the file and continues.
var ErrRejected = errors.New("media: file rejected")

// SavedImage describes a stored, normalized image.
type SavedImage struct {
	Filename string // generated opaque identifier, usable in URLs
	FilePath string // absolute path on disk
	TakenAt  *int64 // EXIF capture time (Unix), when present
}

// UploadStore saves, serves, and deletes report photos.
type UploadStore interface {
	// Save validates, normalizes, and persists one uploaded image under a
	// generated identifier independent of originalFilename.
	Save(ctx context.Context, originalFilename string, data io.Reader) (*SavedImage, error)
	// Delete removes a stored image; true if a file existed and was removed.
	Delete(filename string) bool
	// FullPath resolves a stored filename to an absolute path, refusing
	// anything that escapes the uploads directory.
	FullPath(filename string) (string, error)
	// List returns the filenames currently present in the store.
	List() ([]string, error)
}

// LocalUploadStore implements UploadStore on the local filesystem. Image
// normalization is CPU-bound, so concurrent normalizations are capped by a
// weighted semaphore instead of running one per in-flight request.
type LocalUploadStore struct {
	basePath    string
	maxWidth    int
	jpegQuality int
	sem         *semaphore.Weighted
}

func NewLocalUploadStore(basePath string, maxWidth, jpegQuality, maxConcurrent int) (*LocalUploadStore, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid uploads path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory '%s': %w", absBasePath, err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	slog.Info("upload store initialized", "path", absBasePath, "max_width", maxWidth, "workers", maxConcurrent)
	return &LocalUploadStore{
		basePath:    absBasePath,
		maxWidth:    maxWidth,
		jpegQuality: jpegQuality,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
	}, nil
}

func (s *LocalUploadStore) Save(ctx context.Context, originalFilename string, data io.Reader) (*SavedImage, error) {
	if !IsAllowedImage(originalFilename) {
		return nil, fmt.Errorf("%w: disallowed extension on %q", ErrRejected, originalFilename)
	}

	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", originalFilename, err)
	}

	// EXIF is read from the original bytes; normalization strips it
	takenAt := exifTakenAt(raw)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire image worker slot: %w", err)
	}
	defer s.sem.Release(1)

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable image data in %q: %v", ErrRejected, originalFilename, err)
	}

	// flatten any alpha channel onto white before JPEG encoding
	if o, ok := img.(interface{ Opaque() bool }); !ok || !o.Opaque() {
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), imageWhite)
		img = imaging.OverlayCenter(bg, img, 1.0)
	}

	if img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	filename := uuid.New().String() + ".jpg"
	fullPath := filepath.Join(s.basePath, filename)

	outFile, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create image file '%s': %w", fullPath, err)
	}
	defer outFile.Close()

	if err := imaging.Encode(outFile, img, imaging.JPEG, imaging.JPEGQuality(s.jpegQuality)); err != nil {
		outFile.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to encode image to '%s': %w", fullPath, err)
	}

	slog.Debug("saved normalized image", "filename", filename, "original", originalFilename)
	return &SavedImage{Filename: filename, FilePath: fullPath, TakenAt: takenAt}, nil
}

func (s *LocalUploadStore) Delete(filename string) bool {
	fullPath, err := s.FullPath(filename)
	if err != nil {
		slog.Warn("refusing to delete image outside uploads directory", "filename", filename, "error", err)
		return false
	}
	err = os.Remove(fullPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to delete image", "filename", filename, "error", err)
		}
		return false
	}
	return true
}

func (s *LocalUploadStore) FullPath(filename string) (string, error) {
	cleaned := filepath.Clean(filename)
	if cleaned == "" || cleaned == "." || strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("invalid image filename %q", filename)
	}
	fullPath := filepath.Join(s.basePath, cleaned)
	if !strings.HasPrefix(fullPath, s.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path: access denied for %q", filename)
	}
	return fullPath, nil
}

func (s *LocalUploadStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// exifTakenAt extracts the EXIF capture time, best-effort. Files without
// EXIF data (or with unparseable tags) simply yield nil.
func exifTakenAt(raw []byte) *int64 {
	exifData, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	dt, err := exifData.DateTime()
	if err != nil {
		return nil
	}
	ts := dt.Unix()
	return &ts
}
