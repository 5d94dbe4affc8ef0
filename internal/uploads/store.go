// Package uploads stores book covers, author photos and book PDFs on disk.
//
// Files are named slug(original name) + "-" + uuid + extension, where the
// extension comes from the sniffed content type rather than the client's
// file name. Removals are best-effort: a missing file is not an error.
package uploads

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"

	"github.com/mrlokans/bibliotheque/internal/config"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrEmptyFile       = errors.New("file is empty")
)

type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

var allowedTypes = map[Kind][]string{
	KindImage: {"image/jpeg", "image/png", "image/gif", "image/webp"},
	KindPDF:   {"application/pdf"},
}

// resizable lists the image types imaging can decode and re-encode losslessly
// enough for covers.
var resizable = []string{"image/jpeg", "image/png"}

// Stored describes a file written by Save.
type Stored struct {
	Name     string // file name relative to the kind's directory
	MIME     string
	Size     int64
	Pages    int // PDFs only; 0 when the page count could not be read
	Resized  bool
	FullPath string
}

type Store struct {
	imageDir  string
	pdfDir    string
	maxBytes  int64
	maxWidth  int
	maxHeight int
}

func NewStore(cfg config.Uploads) *Store {
	return &Store{
		imageDir:  cfg.ImageDir,
		pdfDir:    cfg.PDFDir,
		maxBytes:  cfg.MaxUploadBytes,
		maxWidth:  cfg.MaxImageWidth,
		maxHeight: cfg.MaxImageHeight,
	}
}

// Dir returns the directory files of kind are stored in.
func (s *Store) Dir(kind Kind) string {
	if kind == KindPDF {
		return s.pdfDir
	}
	return s.imageDir
}

// Path returns the on-disk location of a stored file. Directory components
// in name are ignored.
func (s *Store) Path(kind Kind, name string) string {
	return filepath.Join(s.Dir(kind), filepath.Base(name))
}

// Save copies r into the directory for kind, checks its content type and
// post-processes it: oversized covers are scaled down and PDFs get a page
// count.
func (s *Store) Save(kind Kind, originalName string, r io.Reader) (*Stored, error) {
	dir := s.Dir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temporary upload file")
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "write upload")
	}
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrTooLarge
	}

	mtype, err := mimetype.DetectFile(tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "detect upload type")
	}
	if !mimetype.EqualsAny(mtype.String(), allowedTypes[kind]...) {
		return nil, errors.Wrapf(ErrUnsupportedType, "%s is not accepted as %s", mtype.String(), kind)
	}

	name := Filename(originalName, mtype.Extension())
	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, errors.Wrap(err, "move upload into place")
	}
	keep = true

	stored := &Stored{Name: name, MIME: mtype.String(), Size: size, FullPath: finalPath}

	switch kind {
	case KindImage:
		if mimetype.EqualsAny(mtype.String(), resizable...) {
			resized, err := s.fit(finalPath)
			if err != nil {
				log.Printf("Uploads: keeping original %s, resize failed: %v", name, err)
			}
			stored.Resized = resized
		}
	case KindPDF:
		pages, err := api.PageCountFile(finalPath)
		if err != nil {
			log.Printf("Uploads: could not count pages of %s: %v", name, err)
		} else {
			stored.Pages = pages
		}
	}

	return stored, nil
}

// fit scales the image at path down to the configured bounds, in place.
func (s *Store) fit(path string) (bool, error) {
	if s.maxWidth <= 0 || s.maxHeight <= 0 {
		return false, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return false, errors.Wrap(err, "decode image")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= s.maxWidth && bounds.Dy() <= s.maxHeight {
		return false, nil
	}
	if err := imaging.Save(imaging.Fit(img, s.maxWidth, s.maxHeight, imaging.Lanczos), path); err != nil {
		return false, errors.Wrap(err, "save resized image")
	}
	return true, nil
}

// Remove deletes a stored file. Empty names and missing files are ignored.
func (s *Store) Remove(kind Kind, name string) {
	if name == "" {
		return
	}
	path := s.Path(kind, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Uploads: failed to remove %s: %v", path, err)
	}
}

// Replace removes old once a new file has been stored under a different name.
func (s *Store) Replace(kind Kind, old, current string) {
	if old != "" && old != current {
		s.Remove(kind, old)
	}
}

// Filename builds the stored file name from the client's file name and the
// extension of the detected type.
func Filename(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	safe := slug.Make(base)
	if safe == "" {
		safe = "file"
	}
	return fmt.Sprintf("%s-%s%s", safe, uuid.NewString(), ext)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// DownloadName turns a book title into an attachment file name, replacing
// every run of non-alphanumeric characters with "-".
func DownloadName(title, ext string) string {
	safe := nonAlphanumeric.ReplaceAllString(title, "-")
	if strings.Trim(safe, "-") == "" {
		safe = "book"
	}
	if ext == "" {
		ext = ".pdf"
	}
	return safe + ext
}
