// Package blob uploads message media and returns a download URL.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Progress reports bytes handed to the transport so far. Total is 0 when the
// size is unknown.
type Progress struct {
	Transferred int64
	Total       int64
}

// Uploader stores a blob and returns its public download URL. onProgress may
// be nil.
type Uploader interface {
	Upload(ctx context.Context, folder, name string, r io.Reader, size int64, onProgress func(Progress)) (string, error)
}

// Cloudinary implements Uploader against a Cloudinary account.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, folder, name string, r io.Reader, size int64, onProgress func(Progress)) (string, error) {
	body := io.Reader(r)
	if onProgress != nil {
		body = &progressReader{r: r, total: size, onProgress: onProgress}
	}

	res, err := c.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     fmt.Sprintf("%s/%s_%s", folder, name, uuid.New().String()),
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return res.SecureURL, nil
}

type progressReader struct {
	r          io.Reader
	done       int64
	total      int64
	onProgress func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.onProgress(Progress{Transferred: p.done, Total: p.total})
	}
	return n, err
}
