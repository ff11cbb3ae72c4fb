package recording

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/Iron-Ham/kla/internal/terminal"
)

// fakeRenderer returns the frame text as the "image".
type fakeRenderer struct {
	calls int
	err   error
}

func (r *fakeRenderer) Render(f terminal.Frame) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte(f.Text()), nil
}

type encodeCall struct {
	frames [][]byte
	delay  time.Duration
}

type fakeEncoder struct {
	calls []encodeCall
	err   error
}

func (e *fakeEncoder) Encode(frames [][]byte, delay time.Duration) ([]byte, error) {
	e.calls = append(e.calls, encodeCall{frames: frames, delay: delay})
	if e.err != nil {
		return nil, e.err
	}
	return bytes.Join(frames, []byte("|")), nil
}

func (e *fakeEncoder) Extension() string { return "fake" }

type memSink struct {
	files map[string][]byte
	err   error
}

func newMemSink() *memSink { return &memSink{files: make(map[string][]byte)} }

func (s *memSink) Save(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.files[name] = data
	return "/out/" + name, nil
}

type fixture struct {
	term     *terminal.State
	renderer *fakeRenderer
	encoder  *fakeEncoder
	sink     *memSink
	coord    *Coordinator
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		term:     terminal.New(20, 3),
		renderer: &fakeRenderer{},
		encoder:  &fakeEncoder{},
		sink:     newMemSink(),
	}
	f.coord = New(f.term, f.renderer, f.encoder, f.sink, nil, opts...)
	return f
}

func TestCoordinator_Snapshot(t *testing.T) {
	f := newFixture()
	f.term.Process([]byte("hello"))

	path, err := f.coord.Snapshot("s1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if path != "/out/s1.png" {
		t.Errorf("Snapshot() path = %q", path)
	}
	if got := string(f.sink.files["s1.png"]); got != "hello\n\n" {
		t.Errorf("saved data = %q, want rendered frame", got)
	}
	if f.renderer.calls != 1 {
		t.Errorf("render calls = %d, want 1", f.renderer.calls)
	}
	if f.coord.Recording() {
		t.Error("Snapshot() started a recording")
	}

	want := []Artifact{{Name: "s1", Path: "/out/s1.png", Frames: 1}}
	if got := f.coord.Artifacts(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("Artifacts() = %+v, want %+v", got, want)
	}
}

func TestCoordinator_SnapshotErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fixture)
		wantIs    error
		wantStage string
	}{
		{
			name:      "render",
			setup:     func(f *fixture) { f.renderer.err = errors.New("font missing") },
			wantIs:    errors.ErrRenderFailed,
			wantStage: StageRender,
		},
		{
			name:      "save",
			setup:     func(f *fixture) { f.sink.err = errors.ErrSaveFailed },
			wantIs:    errors.ErrSaveFailed,
			wantStage: StageSave,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.coord.Snapshot("shot")
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Snapshot() error = %v, want %v", err, tt.wantIs)
			}
			var capErr *errors.CaptureError
			if !errors.As(err, &capErr) {
				t.Fatalf("Snapshot() error type = %T, want *CaptureError", err)
			}
			if capErr.Name != "shot" || capErr.Stage != tt.wantStage {
				t.Errorf("CaptureError = {Name:%q Stage:%q}, want {shot %s}", capErr.Name, capErr.Stage, tt.wantStage)
			}
			if len(f.coord.Artifacts()) != 0 {
				t.Error("failed snapshot recorded an artifact")
			}
		})
	}
}

func TestCoordinator_RecordingLifecycle(t *testing.T) {
	f := newFixture(WithFrameDelay(250 * time.Millisecond))

	if err := f.coord.CaptureFrame(); !errors.Is(err, errors.ErrNotRecording) {
		t.Fatalf("CaptureFrame() before start error = %v, want ErrNotRecording", err)
	}
	if err := f.coord.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if err := f.coord.StartRecording(); !errors.Is(err, errors.ErrAlreadyRecording) {
		t.Fatalf("second StartRecording() error = %v, want ErrAlreadyRecording", err)
	}

	for _, s := range []string{"a", "b", "c"} {
		f.term.Process([]byte(s))
		if err := f.coord.CaptureFrame(); err != nil {
			t.Fatalf("CaptureFrame() error = %v", err)
		}
	}
	if !f.coord.Recording() || len(f.coord.frames) != 3 {
		t.Fatalf("Recording() = %v, frames = %d; want true, 3", f.coord.Recording(), len(f.coord.frames))
	}

	path, recorded, err := f.coord.StopRecording("g1")
	if err != nil || !recorded || path != "/out/g1.fake" {
		t.Fatalf("StopRecording() = %q, %v, %v", path, recorded, err)
	}
	if len(f.encoder.calls) != 1 {
		t.Fatalf("encode calls = %d, want 1", len(f.encoder.calls))
	}
	call := f.encoder.calls[0]
	if len(call.frames) != 3 || call.delay != 250*time.Millisecond {
		t.Errorf("encode call = %d frames, delay %v; want 3, 250ms", len(call.frames), call.delay)
	}
	if string(call.frames[0]) != "a\n\n" || string(call.frames[2]) != "abc\n\n" {
		t.Errorf("frames out of order: %q", call.frames)
	}

	if f.coord.Recording() || len(f.coord.frames) != 0 {
		t.Error("StopRecording() left recording state behind")
	}
	if err := f.coord.CaptureFrame(); !errors.Is(err, errors.ErrNotRecording) {
		t.Errorf("CaptureFrame() after stop error = %v, want ErrNotRecording", err)
	}
}

func TestCoordinator_StopWhenIdle(t *testing.T) {
	f := newFixture()
	path, recorded, err := f.coord.StopRecording("nothing")
	if path != "" || recorded || err != nil {
		t.Errorf("StopRecording() idle = %q, %v, %v; want \"\", false, nil", path, recorded, err)
	}
	if len(f.encoder.calls) != 0 {
		t.Error("idle StopRecording() called the encoder")
	}
}

func TestCoordinator_EncodeFailureClearsState(t *testing.T) {
	f := newFixture()
	f.encoder.err = errors.ErrNoFrames

	if err := f.coord.StartRecording(); err != nil {
		t.Fatal(err)
	}
	_, recorded, err := f.coord.StopRecording("g")
	if !recorded {
		t.Error("StopRecording() recorded = false for an active recording")
	}
	if !errors.Is(err, errors.ErrEncodeFailed) || !errors.Is(err, errors.ErrNoFrames) {
		t.Errorf("StopRecording() error = %v, want ErrEncodeFailed wrapping ErrNoFrames", err)
	}
	if f.coord.Recording() {
		t.Error("recording still active after failed stop")
	}
	if err := f.coord.StartRecording(); err != nil {
		t.Errorf("StartRecording() after failure error = %v", err)
	}
}

func TestCoordinator_FrameRenderFailure(t *testing.T) {
	f := newFixture()
	if err := f.coord.StartRecording(); err != nil {
		t.Fatal(err)
	}
	f.renderer.err = errors.New("boom")

	err := f.coord.CaptureFrame()
	if !errors.Is(err, errors.ErrRenderFailed) {
		t.Errorf("CaptureFrame() error = %v, want ErrRenderFailed", err)
	}
	if len(f.coord.frames) != 0 {
		t.Errorf("frames = %d after failed capture", len(f.coord.frames))
	}
}

func TestCoordinator_WithMedia(t *testing.T) {
	dir := t.TempDir()
	sink, err := media.NewDirSink(dir)
	if err != nil {
		t.Fatal(err)
	}
	term := terminal.New(12, 2)
	renderer := media.NewPNGRenderer(media.DefaultTheme(), media.DefaultRenderOptions())
	coord := New(term, renderer, media.GIFEncoder{}, sink, nil)

	term.Process([]byte("$ echo hi\r\nhi"))
	path, err := coord.Snapshot("still")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("snapshot is not a PNG: %v", err)
	}

	if err := coord.StartRecording(); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := coord.CaptureFrame(); err != nil {
			t.Fatal(err)
		}
	}
	gifPath, _, err := coord.StopRecording("anim")
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if gifPath != filepath.Join(dir, "anim.gif") {
		t.Errorf("StopRecording() path = %q", gifPath)
	}
}

func TestCoordinator_CancelRecording(t *testing.T) {
	f := newFixture()
	if err := f.coord.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.CaptureFrame(); err != nil {
		t.Fatal(err)
	}

	f.coord.CancelRecording()
	if f.coord.Recording() || len(f.coord.frames) != 0 {
		t.Error("CancelRecording() left recording state behind")
	}
	if len(f.encoder.calls) != 0 {
		t.Error("CancelRecording() called the encoder")
	}
	if _, recorded, _ := f.coord.StopRecording("x"); recorded {
		t.Error("StopRecording() after cancel reported a recording")
	}
	f.coord.CancelRecording()
}
