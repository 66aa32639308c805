package files

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// TempSuffix marks files that are still being written.
const TempSuffix = ".part"

// WriteAtomic writes path through a temp file in the same directory and renames
// it into place once write succeeds, so readers never see a partial file. The
// parent directory is created when missing. An existing file is replaced.
func WriteAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewFatalIOError("create directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*"+TempSuffix)
	if err != nil {
		return apperrors.NewFatalIOError("create temp file in "+dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err = buf.Flush(); err != nil {
		tmp.Close()
		return apperrors.NewFatalIOError("write "+path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewFatalIOError("sync "+path, err)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.NewFatalIOError("close "+path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return apperrors.NewFatalIOError("chmod "+path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return apperrors.NewFatalIOError("rename into "+path, err)
	}

	slog.Debug("Wrote file", slog.String("path", path))
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ClearDir removes the files in dir whose extension matches ext, so that stale
// outputs of an earlier run never leak into the next one. A missing dir is fine.
func ClearDir(dir, ext string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.NewFatalIOError("read directory "+dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return apperrors.NewFatalIOError(fmt.Sprintf("remove stale %s", entry.Name()), err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
