// Package archive packs a directory tree into a zstd-compressed tar file and
// unpacks it again.
//
// Archives hold only regular files and directories with relative,
// slash-separated names. Pack writes to a temporary sibling of the
// destination and renames it into place, so a failed pack never damages the
// previous archive. Unpack refuses entries that would escape the target
// directory.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultLevel is the zstd level used when callers pass zero.
	DefaultLevel = 3

	fileMode = 0o600
	dirMode  = 0o750
)

// ErrCorrupt reports an archive that is not a readable zstd-compressed tar
// stream, or one whose entries are unsafe to extract.
var ErrCorrupt = errors.New("archive is not a valid zstd-compressed tar stream")

// Pack writes every regular file and directory under srcDir into dest.
//
// level follows the zstd command-line scale (1 fastest .. 19+ smallest) and
// is mapped onto the encoder's speed presets; zero selects DefaultLevel.
// It returns the size of the written archive in bytes.
func Pack(ctx context.Context, srcDir, dest string, level int) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary archive next to %s: %w", dest, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck // Already failing
			os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error path
		}
	}()

	if err := writeArchive(ctx, tmp, srcDir, level); err != nil {
		return 0, fmt.Errorf("packing %s into %s: %w", srcDir, dest, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("replacing %s: %w", dest, err)
	}
	committed = true
	return info.Size(), nil
}

// CreateEmpty writes an archive containing no entries to dest.
func CreateEmpty(dest string, level int) error {
	empty, err := os.MkdirTemp("", "addrslips-empty-*")
	if err != nil {
		return fmt.Errorf("creating empty staging dir: %w", err)
	}
	defer os.RemoveAll(empty) //nolint:errcheck // Staging dir is disposable

	if _, err := Pack(context.Background(), empty, dest, level); err != nil {
		return fmt.Errorf("creating empty archive: %w", err)
	}
	return nil
}

func writeArchive(ctx context.Context, w io.Writer, srcDir string, level int) error {
	if level == 0 {
		level = DefaultLevel
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	tw := tar.NewWriter(enc)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return addEntry(tw, p, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		enc.Close() //nolint:errcheck // Stream is abandoned
		return walkErr
	}

	if err := tw.Close(); err != nil {
		enc.Close() //nolint:errcheck // Stream is abandoned
		return fmt.Errorf("closing tar writer: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing zstd stream: %w", err)
	}
	return nil
}

func addEntry(tw *tar.Writer, fullPath, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", fullPath, err)
	}

	switch {
	case info.IsDir():
		return tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeDir,
			Name:     name + "/",
			Mode:     dirMode,
			ModTime:  info.ModTime(),
		})
	case info.Mode().IsRegular():
	default:
		// Sockets, symlinks and devices have no place in a project.
		return nil
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", fullPath, err)
	}
	defer f.Close()

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     fileMode,
		ModTime:  info.ModTime(),
	}); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Unpack extracts src into destDir, which must already exist.
//
// Stream decoding failures and unsafe entry names are reported as
// ErrCorrupt; failures writing to destDir are returned as-is.
func Unpack(ctx context.Context, src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", src, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", src, ErrCorrupt, err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w: %v", src, ErrCorrupt, err)
		}

		target, err := entryPath(destDir, hdr.Name)
		if err != nil {
			return fmt.Errorf("%s: %w: %v", src, ErrCorrupt, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target); err != nil {
				if errors.Is(err, errStream) {
					return fmt.Errorf("%s: %w: %v", src, ErrCorrupt, err)
				}
				return err
			}
		}
	}
}

// errStream tags read failures from the archive during file extraction.
var errStream = errors.New("reading archive stream")

func extractFile(r io.Reader, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	_, copyErr := io.Copy(writerOnly{out}, readerOnly{r})
	closeErr := out.Close()
	if copyErr != nil {
		var rerr readError
		if errors.As(copyErr, &rerr) {
			return fmt.Errorf("%w: %v", errStream, rerr.err)
		}
		return fmt.Errorf("writing %s: %w", target, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", target, closeErr)
	}
	return nil
}

// entryPath resolves an archive entry name beneath destDir, rejecting
// absolute names and parent-directory traversal.
func entryPath(destDir, name string) (string, error) {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("unsafe entry name %q", name)
	}
	return filepath.Join(destDir, filepath.FromSlash(clean)), nil
}

// readError marks errors that came from the source side of a copy.
type readError struct{ err error }

func (e readError) Error() string { return e.err.Error() }

type readerOnly struct{ r io.Reader }

func (r readerOnly) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, readError{err}
	}
	return n, err
}

type writerOnly struct{ w io.Writer }

func (w writerOnly) Write(p []byte) (int, error) { return w.w.Write(p) }
