package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Iron-Ham/kla/internal/errors"
)

// Encoder turns a sequence of PNG frames into one artifact.
type Encoder interface {
	Encode(frames [][]byte, delay time.Duration) ([]byte, error)
	Extension() string
}

// Format names an animation output format.
type Format string

const (
	FormatPNG Format = "png"
	FormatGIF Format = "gif"
	FormatMP4 Format = "mp4"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatPNG, FormatGIF, FormatMP4}
}

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPNG, FormatGIF, FormatMP4:
		return f, nil
	default:
		names := make([]string, 0, len(Formats()))
		for _, f := range Formats() {
			names = append(names, string(f))
		}
		return "", fmt.Errorf("%w: %q (supported: %s)", errors.ErrUnsupportedFormat, s, strings.Join(names, ", "))
	}
}

var _ pflag.Value = (*Format)(nil)

// String implements pflag.Value.
func (f *Format) String() string { return string(*f) }

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string { return "format" }

// NewEncoder returns the encoder for f.
func NewEncoder(f Format) (Encoder, error) {
	switch f {
	case FormatPNG:
		return PNGEncoder{}, nil
	case FormatGIF:
		return GIFEncoder{}, nil
	case FormatMP4:
		return &MP4Encoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, f)
	}
}

// DefaultFrameDelay is used when an encoder is handed a non-positive delay.
const DefaultFrameDelay = 500 * time.Millisecond

// centiseconds converts a frame delay into GIF delay units, never less
// than one.
func centiseconds(d time.Duration) int {
	if d <= 0 {
		d = DefaultFrameDelay
	}
	return max(int(d/(10*time.Millisecond)), 1)
}

// PNGEncoder keeps only the last frame.
type PNGEncoder struct{}

// Extension returns "png".
func (PNGEncoder) Extension() string { return string(FormatPNG) }

// Encode returns the final frame unchanged.
func (PNGEncoder) Encode(frames [][]byte, _ time.Duration) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.ErrNoFrames
	}
	return frames[len(frames)-1], nil
}

// GIFEncoder produces an infinitely looping animated GIF.
type GIFEncoder struct{}

// Extension returns "gif".
func (GIFEncoder) Extension() string { return string(FormatGIF) }

// Encode decodes each PNG frame and quantizes it. Frames with at most 256
// distinct colors get an exact palette; others are dithered onto Plan 9.
func (GIFEncoder) Encode(frames [][]byte, delay time.Duration) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.ErrNoFrames
	}

	cs := centiseconds(delay)
	anim := &gif.GIF{LoopCount: 0}
	for i, data := range frames {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding frame %d: %w", errors.ErrEncodeFailed, i, err)
		}
		anim.Image = append(anim.Image, quantize(img))
		anim.Delay = append(anim.Delay, cs)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

func quantize(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	if pal, ok := exactPalette(img, 256); ok {
		out := image.NewPaletted(bounds, pal)
		draw.Draw(out, bounds, img, bounds.Min, draw.Src)
		return out
	}
	out := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(out, bounds, img, bounds.Min)
	return out
}

// exactPalette collects the distinct colors of img, giving up once there
// are more than limit.
func exactPalette(img image.Image, limit int) (color.Palette, bool) {
	seen := make(map[color.RGBA]struct{})
	pal := make(color.Palette, 0, limit)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if _, ok := seen[c]; ok {
				continue
			}
			if len(pal) == limit {
				return nil, false
			}
			seen[c] = struct{}{}
			pal = append(pal, c)
		}
	}
	return pal, true
}

// FirstFrame extracts the first frame of a GIF as PNG.
func FirstFrame(gifData []byte) ([]byte, error) {
	img, err := gif.Decode(bytes.NewReader(gifData))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding gif: %w", errors.ErrEncodeFailed, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// MP4Encoder pipes frames through ffmpeg.
type MP4Encoder struct {
	// Binary is the ffmpeg executable (default: "ffmpeg" from PATH).
	Binary string
	// Timeout bounds one encode (default: 2 minutes).
	Timeout time.Duration
}

// Extension returns "mp4".
func (*MP4Encoder) Extension() string { return string(FormatMP4) }

// Encode writes frames to ffmpeg's stdin as an image2pipe stream and
// returns the H.264 result.
func (e *MP4Encoder) Encode(frames [][]byte, delay time.Duration) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.ErrNoFrames
	}

	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %w", errors.ErrEncodeFailed, bin, err)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "kla-mp4-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrEncodeFailed, err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	out := filepath.Join(tmpDir, "out.mp4")

	// Frame rate as a rational so 50cs becomes exactly 2fps.
	rate := "100/" + strconv.Itoa(centiseconds(delay))
	cmd := exec.CommandContext(ctx, path,
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe", "-framerate", rate, "-i", "-",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		out,
	)
	cmd.Stdin = bytes.NewReader(bytes.Join(frames, nil))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("%w: ffmpeg: %w: %s", errors.ErrEncodeFailed, err, msg)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ffmpeg output: %w", errors.ErrEncodeFailed, err)
	}
	return data, nil
}
