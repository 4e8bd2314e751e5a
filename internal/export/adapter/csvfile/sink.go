package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"
)

// FileExtension is appended to the collection name to form the output file name.
const FileExtension = ".csv"

const filePerm os.FileMode = 0o644

// tempPattern names in-progress files in atomic mode. It does not embed the
// collection so the temp name is never longer than the final one.
const tempPattern = ".export-*.tmp"

// Sink creates one CSV file per collection inside a directory.
type Sink struct {
	dir    string
	atomic bool
	logger logger.Logger
}

var _ repository.RowSink = (*Sink)(nil)

// NewSink creates a sink writing into dir. With atomic set, rows go to a temp file
// that only replaces <collection>.csv on Commit.
func NewSink(dir string, atomic bool, log logger.Logger) *Sink {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = logger.NewLogger()
	}
	return &Sink{
		dir:    dir,
		atomic: atomic,
		logger: log.WithComponent("csvfile"),
	}
}

// PathFor returns the output path for collection.
func (s *Sink) PathFor(collection string) string {
	return filepath.Join(s.dir, collection+FileExtension)
}

// Create opens the writer for collection, truncating any earlier output in non-atomic mode.
func (s *Sink) Create(collection string) (repository.RowWriter, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, apperrors.NewFileIOError(collection, "cannot use collection name as a file name").WithCause(err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperrors.NewFileIOError(collection, "failed to create output directory").WithCause(err)
	}

	path := s.PathFor(collection)

	var (
		f   *os.File
		err error
	)
	if s.atomic {
		f, err = os.CreateTemp(s.dir, tempPattern)
	} else {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	}
	if err != nil {
		return nil, apperrors.NewFileIOError(collection, "failed to open output file").WithCause(err)
	}

	w := csv.NewWriter(f)
	w.UseCRLF = false

	return &fileWriter{
		collection: collection,
		path:       path,
		file:       f,
		csv:        w,
		atomic:     s.atomic,
		logger:     s.logger,
	}, nil
}

// validateCollectionName rejects names that would leave the output directory.
func validateCollectionName(name string) error {
	if name == "" {
		return apperrors.ErrInvalidCollectionName
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a path separator", apperrors.ErrInvalidCollectionName, name)
	}
	return nil
}

// fileWriter is the RowWriter for one collection file.
type fileWriter struct {
	collection string
	path       string
	file       *os.File
	csv        *csv.Writer
	atomic     bool
	committed  bool
	closed     bool
	logger     logger.Logger
}

func (w *fileWriter) Path() string {
	return w.path
}

// WriteHeader writes the fixed header row.
func (w *fileWriter) WriteHeader() error {
	if err := w.csv.Write(model.CSVHeader); err != nil {
		return apperrors.NewFileIOError(w.collection, "failed to write header").WithCause(err)
	}
	return nil
}

// Write appends one data row.
func (w *fileWriter) Write(row model.Row) error {
	if err := w.csv.Write(row.Strings()); err != nil {
		return apperrors.NewFileIOError(w.collection, "failed to write row").WithCause(err)
	}
	return nil
}

// Commit flushes the rows and, in atomic mode, moves the temp file into place.
func (w *fileWriter) Commit() error {
	if w.closed {
		return apperrors.NewFileIOError(w.collection, "writer already closed")
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return apperrors.NewFileIOError(w.collection, "failed to flush rows").WithCause(err)
	}

	if w.atomic {
		if err := w.file.Sync(); err != nil {
			return apperrors.NewFileIOError(w.collection, "failed to sync output file").WithCause(err)
		}
		if err := w.file.Chmod(filePerm); err != nil {
			return apperrors.NewFileIOError(w.collection, "failed to set output file mode").WithCause(err)
		}
	}

	w.closed = true
	if err := w.file.Close(); err != nil {
		w.discard()
		return apperrors.NewFileIOError(w.collection, "failed to close output file").WithCause(err)
	}

	if w.atomic {
		if err := os.Rename(w.file.Name(), w.path); err != nil {
			w.discard()
			return apperrors.NewFileIOError(w.collection, "failed to move output file into place").WithCause(err)
		}
	}

	w.committed = true
	w.logger.WithFields(map[string]interface{}{
		"collection": w.collection,
		"path":       w.path,
	}).Debug("CSV file committed")
	return nil
}

// Close releases the file. Without a prior Commit, atomic output is discarded and
// direct output keeps whatever was flushed so far.
func (w *fileWriter) Close() error {
	if w.committed || w.closed {
		return nil
	}
	w.closed = true

	if !w.atomic {
		w.csv.Flush()
		if err := w.file.Close(); err != nil {
			return apperrors.NewFileIOError(w.collection, "failed to close output file").WithCause(err)
		}
		return nil
	}

	_ = w.file.Close()
	w.discard()
	return nil
}

// discard removes the temp file of an atomic writer.
func (w *fileWriter) discard() {
	if !w.atomic {
		return
	}
	if err := os.Remove(w.file.Name()); err != nil && !os.IsNotExist(err) {
		w.logger.WithError(err).WithFields(map[string]interface{}{
			"collection": w.collection,
			"temp_file":  w.file.Name(),
		}).Warn("Failed to remove temporary output file")
	}
}
