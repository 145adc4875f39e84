// Package storage persists uploaded slip images on the local
// filesystem.  The orchestrator only sees the narrow SlipStore
// interface, so swapping in object storage later touches nothing else.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// maxSlipBytes caps uploaded slip images at 10 MB.
	maxSlipBytes = 10 * 1024 * 1024
)

// ErrInvalidImage is returned when the uploaded file is not a JPEG or
// PNG image regardless of its claimed extension.
var ErrInvalidImage = errors.New("invalid image: only JPG and PNG slips are accepted")

// ErrImageTooLarge is returned when the upload exceeds the size cap.
var ErrImageTooLarge = errors.New("image exceeds the 10MB limit")

// SlipStore is what the orchestrator needs from slip storage: save an
// upload and get back a public path, and remove it again when the
// surrounding operation fails after the image was already written.
type SlipStore interface {
	Save(file multipart.File, header *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
}

// publicPrefix is the route the saved images are served from.  It is
// fixed by the static mount on /uploads, independent of where baseDir
// points on disk.
const publicPrefix = "/uploads/slips/"

// Uploader stores slips under <baseDir>/slips with uuid file names.
type Uploader struct {
	baseDir string
}

// NewUploader creates an Uploader rooted at baseDir ("uploads" when
// empty).
func NewUploader(baseDir string) *Uploader {
	if baseDir == "" {
		baseDir = "uploads"
	}
	return &Uploader{baseDir: filepath.Clean(baseDir)}
}

// sniffImageExt validates the file's magic bytes and returns the
// canonical extension.  Extensions are not trusted: a renamed
// executable must not land in the uploads directory.
func sniffImageExt(file multipart.File) (string, error) {
	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read file header: %w", err)
	}
	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind upload: %w", err)
		}
	}
	switch http.DetectContentType(header[:n]) {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	default:
		return "", ErrInvalidImage
	}
}

// Save validates and writes one slip image, returning its public path
// (e.g. "/uploads/slips/<uuid>.jpg").  The caller is responsible for
// calling Remove if the operation the slip belongs to fails afterwards.
func (u *Uploader) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > maxSlipBytes {
		return "", ErrImageTooLarge
	}
	ext, err := sniffImageExt(file)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(u.baseDir, "slips")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create slip file: %w", err)
	}
	if _, err := io.Copy(out, io.LimitReader(file, maxSlipBytes+1)); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write slip file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close slip file: %w", err)
	}
	return publicPrefix + name, nil
}

// Remove deletes a previously saved slip by its public path.  Removing
// a path that is already gone is not an error; the cleanup runs on
// failure paths where the write itself may not have happened.
func (u *Uploader) Remove(publicPath string) error {
	name, ok := strings.CutPrefix(publicPath, publicPrefix)
	// Only bare file names under the slips route are deletable.
	if !ok || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("path %q is outside the upload dir", publicPath)
	}
	if err := os.Remove(filepath.Join(u.baseDir, "slips", name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
