// Package imagestore keeps product images as files in a local directory
// that is also served read-only under /images/products/.
package imagestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/webstore/store-api/internal/domain/product"
)

var _ product.ImageStore = (*Disk)(nil)

// Disk stores images under a single directory.
type Disk struct {
	dir string
	now func() time.Time
}

// NewDisk returns a Disk rooted at dir, creating the directory if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create images dir")
	}
	return &Disk{dir: dir, now: time.Now}, nil
}

// Dir returns the directory images are written to.
func (d *Disk) Dir() string { return d.dir }

// Save writes body to a new file named after the current time and returns
// the file name. The extension of originalName is kept.
func (d *Disk) Save(ctx context.Context, originalName string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := d.now().UTC().Format("20060102150405.000")
	name = strings.Replace(name, ".", "", 1) + "-" + uuid.NewString()[:8] + extension(originalName)

	f, err := os.OpenFile(filepath.Join(d.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write image")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "close image")
	}
	return name, nil
}

// Delete removes image name. A missing file is not an error.
func (d *Disk) Delete(_ context.Context, name string) error {
	if name == "" || name != filepath.Base(name) {
		return nil
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "delete image")
	}
	return nil
}

// extension returns the lower-cased extension of name, or "" when it holds
// anything other than letters and digits.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
