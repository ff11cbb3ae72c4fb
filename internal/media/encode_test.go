package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/testutil"
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// gradientPNG has w*h distinct colors.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"gif", FormatGIF, false},
		{"PNG", FormatPNG, false},
		{" mp4 ", FormatMP4, false},
		{"webm", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFormat_FlagValue(t *testing.T) {
	f := FormatGIF
	if err := f.Set("MP4"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if f.String() != "mp4" || f.Type() != "format" {
		t.Errorf("String() = %q, Type() = %q", f.String(), f.Type())
	}
	if err := f.Set("avi"); err == nil {
		t.Error("Set(avi) error = nil")
	}
	if f != FormatMP4 {
		t.Errorf("failed Set changed value to %q", f)
	}
}

func TestNewEncoder(t *testing.T) {
	for _, f := range Formats() {
		enc, err := NewEncoder(f)
		if err != nil {
			t.Fatalf("NewEncoder(%q) error = %v", f, err)
		}
		if enc.Extension() != string(f) {
			t.Errorf("NewEncoder(%q).Extension() = %q", f, enc.Extension())
		}
	}
	if _, err := NewEncoder("bmp"); !errors.Is(err, errors.ErrUnsupportedFormat) {
		t.Errorf("NewEncoder(bmp) error = %v", err)
	}
}

func TestEncoders_NoFrames(t *testing.T) {
	for _, enc := range []Encoder{PNGEncoder{}, GIFEncoder{}, &MP4Encoder{}} {
		if _, err := enc.Encode(nil, time.Second); !errors.Is(err, errors.ErrNoFrames) {
			t.Errorf("%T.Encode(nil) error = %v, want ErrNoFrames", enc, err)
		}
	}
}

func TestPNGEncoder_KeepsLastFrame(t *testing.T) {
	first := solidPNG(t, 2, 2, rgb(1, 1, 1))
	last := solidPNG(t, 2, 2, rgb(9, 9, 9))

	got, err := PNGEncoder{}.Encode([][]byte{first, last}, 0)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(got, last) {
		t.Error("Encode() did not return the last frame")
	}
}

func TestGIFEncoder(t *testing.T) {
	frames := [][]byte{
		solidPNG(t, 32, 16, rgb(255, 0, 0)),
		solidPNG(t, 32, 16, rgb(0, 255, 0)),
		gradientPNG(t, 32, 16),
	}

	data, err := GIFEncoder{}.Encode(frames, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gif.DecodeAll() error = %v", err)
	}
	if len(anim.Image) != 3 {
		t.Fatalf("frames = %d, want 3", len(anim.Image))
	}
	for i, d := range anim.Delay {
		if d != 50 {
			t.Errorf("Delay[%d] = %d, want 50", i, d)
		}
	}
	if anim.LoopCount != 0 {
		t.Errorf("LoopCount = %d, want 0 (forever)", anim.LoopCount)
	}

	// Exact palettes keep solid colors exact.
	got := color.RGBAModel.Convert(anim.Image[1].At(3, 2)).(color.RGBA)
	if got != rgb(0, 255, 0) {
		t.Errorf("frame 1 pixel = %v, want pure green", got)
	}
}

func TestGIFEncoder_BadFrame(t *testing.T) {
	_, err := GIFEncoder{}.Encode([][]byte{[]byte("not a png")}, time.Second)
	if !errors.Is(err, errors.ErrEncodeFailed) {
		t.Errorf("Encode() error = %v, want ErrEncodeFailed", err)
	}
}

func TestCentiseconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{500 * time.Millisecond, 50},
		{0, 50},
		{-time.Second, 50},
		{time.Millisecond, 1},
		{2 * time.Second, 200},
	}
	for _, tt := range tests {
		if got := centiseconds(tt.in); got != tt.want {
			t.Errorf("centiseconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExactPalette(t *testing.T) {
	img, _ := png.Decode(bytes.NewReader(gradientPNG(t, 32, 16)))
	if pal, ok := exactPalette(img, 256); ok {
		t.Errorf("exactPalette() = %d colors, want overflow", len(pal))
	}
	img, _ = png.Decode(bytes.NewReader(gradientPNG(t, 16, 16)))
	if pal, ok := exactPalette(img, 256); !ok || len(pal) != 256 {
		t.Errorf("exactPalette() = %d, %v; want 256, true", len(pal), ok)
	}
}

func TestFirstFrame(t *testing.T) {
	data, err := GIFEncoder{}.Encode([][]byte{
		solidPNG(t, 4, 4, rgb(10, 20, 30)),
		solidPNG(t, 4, 4, rgb(200, 0, 0)),
	}, time.Second)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	pngData, err := FirstFrame(data)
	if err != nil {
		t.Fatalf("FirstFrame() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA); got != rgb(10, 20, 30) {
		t.Errorf("pixel = %v, want first frame color", got)
	}

	if _, err := FirstFrame([]byte("GIF89a?")); !errors.Is(err, errors.ErrEncodeFailed) {
		t.Errorf("FirstFrame(garbage) error = %v", err)
	}
}

func TestMP4Encoder_MissingBinary(t *testing.T) {
	enc := &MP4Encoder{Binary: filepath.Join(t.TempDir(), "no-ffmpeg")}
	_, err := enc.Encode([][]byte{solidPNG(t, 2, 2, rgb(0, 0, 0))}, time.Second)
	if !errors.Is(err, errors.ErrEncodeFailed) {
		t.Errorf("Encode() error = %v, want ErrEncodeFailed", err)
	}
}

func TestMP4Encoder(t *testing.T) {
	testutil.SkipIfNoFFmpeg(t)

	frames := [][]byte{
		solidPNG(t, 33, 17, rgb(255, 0, 0)),
		solidPNG(t, 33, 17, rgb(0, 0, 255)),
	}
	data, err := (&MP4Encoder{}).Encode(frames, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	// ISO base media files start with an ftyp box.
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		t.Errorf("output does not look like mp4: % x", data[:min(len(data), 12)])
	}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	sink, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink() error = %v", err)
	}

	path, err := sink.Save("shot.png", []byte("data"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != filepath.Join(dir, "shot.png") {
		t.Errorf("Save() path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "data" {
		t.Errorf("ReadFile() = %q, %v", got, err)
	}

	if _, err := sink.Save("shot.png", []byte("new")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "new" {
		t.Errorf("overwritten content = %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the artifact", len(entries))
	}

	for _, bad := range []string{"", "../escape.png", "a/b.png", ".hidden"} {
		if _, err := sink.Save(bad, nil); !errors.Is(err, errors.ErrSaveFailed) {
			t.Errorf("Save(%q) error = %v, want ErrSaveFailed", bad, err)
		}
	}
}
