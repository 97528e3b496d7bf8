package output

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// Summary describes a saved document.
type Summary struct {
	Path        string
	Size        int64
	ContentType string

	// Width and Height are set when the document decodes as an image.
	Width   int
	Height  int
	Decoded bool
}

func (s Summary) String() string {
	if s.Decoded {
		return fmt.Sprintf("%s (%s, %d bytes, %dx%d px)", s.Path, s.ContentType, s.Size, s.Width, s.Height)
	}
	return fmt.Sprintf("%s (%s, %d bytes)", s.Path, s.ContentType, s.Size)
}

// Describe sniffs the content type of the file at path and, for image
// formats, decodes it to report its pixel dimensions. PDF and unknown
// formats are described without decoding.
func Describe(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("output: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Summary{}, fmt.Errorf("output: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Summary{}, fmt.Errorf("output: read %s: %w", path, err)
	}

	sum := Summary{
		Path:        path,
		Size:        st.Size(),
		ContentType: http.DetectContentType(head[:n]),
	}
	if !strings.HasPrefix(sum.ContentType, "image/") {
		return sum, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return sum, fmt.Errorf("output: %w", err)
	}
	img, err := imaging.Decode(f)
	if err != nil {
		return sum, fmt.Errorf("output: decode %s: %w", path, err)
	}
	b := img.Bounds()
	sum.Width, sum.Height, sum.Decoded = b.Dx(), b.Dy(), true
	return sum, nil
}
