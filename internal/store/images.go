package store

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/nerrad567/addrslips-core/internal/infrastructure/metrics"
)

const (
	imageFileMode = 0o600

	// maxNameAttempts bounds retries when a generated name already exists.
	maxNameAttempts = 3
)

// StoreImage copies the file at src into the project's image directory
// under a new collision-free name and returns that name. The original
// extension is kept.
func (s *Store) StoreImage(src string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", ErrClosed
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening image %s: %w", src, err)
	}
	defer in.Close()

	ext := filepath.Ext(src)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := uuid.NewString() + ext
		dest := filepath.Join(s.workDir, ImageDirName, name)

		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, imageFileMode)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating image %s: %w", dest, err)
		}

		if _, err := io.Copy(out, in); err != nil {
			out.Close()     //nolint:errcheck // Already failing
			os.Remove(dest) //nolint:errcheck // Best effort cleanup on error path
			return "", fmt.Errorf("copying image %s to %s: %w", src, dest, err)
		}
		if err := out.Close(); err != nil {
			os.Remove(dest) //nolint:errcheck // Best effort cleanup on error path
			return "", fmt.Errorf("closing image %s: %w", dest, err)
		}

		s.metrics.RecordImageOp(metrics.ImageOpStore)
		s.logger.Debug("image stored", "source", src, "name", name)
		return name, nil
	}
	return "", fmt.Errorf("copying image %s: no free file name after %d attempts", src, maxNameAttempts)
}

// LoadImage decodes a stored image. PNG, JPEG, GIF, BMP, TIFF and WebP are
// supported.
func (s *Store) LoadImage(name string) (image.Image, error) {
	if err := validateImageName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	if s.images != nil {
		if img, ok := s.images.Get(name); ok {
			s.metrics.RecordImageOp(metrics.ImageOpCached)
			return img.(image.Image), nil
		}
	}

	p := filepath.Join(s.workDir, ImageDirName, name)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", p, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", p, err)
	}

	if s.images != nil {
		s.images.DeleteExpired()
		s.images.SetDefault(name, img)
	}
	s.metrics.RecordImageOp(metrics.ImageOpLoad)
	return img, nil
}

// DeleteImage removes a stored image. Removing a name that does not exist
// is not an error.
func (s *Store) DeleteImage(name string) error {
	if err := validateImageName(name); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	if s.images != nil {
		s.images.Delete(name)
	}

	p := filepath.Join(s.workDir, ImageDirName, name)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing image %s: %w", p, err)
	}
	s.metrics.RecordImageOp(metrics.ImageOpDelete)
	return nil
}

// ImagePath returns where a stored image lives inside the working directory.
func (s *Store) ImagePath(name string) (string, error) {
	if err := validateImageName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.workDir, ImageDirName, name), nil
}

func validateImageName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrImageName, name)
	}
	return nil
}
