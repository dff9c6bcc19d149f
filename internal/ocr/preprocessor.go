package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/rs/zerolog"
)

// Preprocessor enhances scans before OCR with ImageMagick.
// Every failure falls back to the original image.
type Preprocessor struct {
	log zerolog.Logger
}

// NewPreprocessor creates a new image preprocessor
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{log: logger.WithComponent("preprocessor")}
}

// Enhance applies resize, grayscale, contrast, despeckle and sharpen filters.
// The result is a PNG; ok is false when the original image is returned.
func (p *Preprocessor) Enhance(ctx context.Context, image []byte) (out []byte, ok bool) {
	binary := imageMagick()
	if binary == "" {
		return image, false
	}

	in, err := os.CreateTemp("", "pre-in-*.png")
	if err != nil {
		return image, false
	}
	defer os.Remove(in.Name())
	tmp, err := os.CreateTemp("", "pre-out-*.png")
	if err != nil {
		in.Close()
		return image, false
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if _, err := in.Write(image); err != nil {
		in.Close()
		return image, false
	}
	in.Close()

	args := []string{
		in.Name(),
		// keeps aspect ratio, only shrinks
		"-resize", "2000x2000>",
		"-colorspace", "Gray",
		"-normalize",
		"-contrast-stretch", "2%x1%",
		"-despeckle",
		"-sharpen", "0x1",
		"-unsharp", "0x0.5+0.5+0",
		tmp.Name(),
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.log.Warn().Err(err).Str("stderr", stderr.String()).Msg("ImageMagick failed, using original image")
		return image, false
	}

	processed, err := os.ReadFile(tmp.Name())
	if err != nil || len(processed) == 0 {
		return image, false
	}

	p.log.Debug().Int("before", len(image)).Int("after", len(processed)).Msg("image enhanced")
	return processed, true
}

// imageMagick prefers 'magick' (ImageMagick 7) over 'convert' (ImageMagick 6)
func imageMagick() string {
	for _, name := range []string{"magick", "convert"} {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}
