// Package recording bridges the terminal model to image output. A
// Coordinator renders the current screen on demand, either as a single
// still or as frames accumulated between StartRecording and
// StopRecording, and hands the results to an encoder and a sink.
//
// A Coordinator is driven from one goroutine (the script interpreter) and
// holds no locks.
package recording

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/Iron-Ham/kla/internal/terminal"
)

// FrameSource supplies the screen to capture.
type FrameSource interface {
	Frame() terminal.Frame
}

// Renderer turns one frame into PNG bytes.
type Renderer interface {
	Render(terminal.Frame) ([]byte, error)
}

// Encoder turns an ordered frame sequence into one artifact.
type Encoder interface {
	Encode(frames [][]byte, delay time.Duration) ([]byte, error)
	Extension() string
}

// Sink stores finished artifacts and reports where they went.
type Sink interface {
	Save(filename string, data []byte) (string, error)
}

// Stages reported in CaptureError.Stage.
const (
	StageRender = "render"
	StageEncode = "encode"
	StageSave   = "save"
)

// DefaultFrameDelay is the per-frame delay handed to the encoder.
const DefaultFrameDelay = 500 * time.Millisecond

// Artifact describes one saved capture.
type Artifact struct {
	Name   string
	Path   string
	Frames int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFrameDelay sets the per-frame delay used when encoding animations.
func WithFrameDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.frameDelay = d
		}
	}
}

// Coordinator owns the lifecycle of captures for one session.
type Coordinator struct {
	source     FrameSource
	renderer   Renderer
	encoder    Encoder
	sink       Sink
	logger     *logging.Logger
	frameDelay time.Duration

	recording bool
	frames    [][]byte
	artifacts []Artifact
}

// New returns an idle Coordinator.
func New(source FrameSource, renderer Renderer, encoder Encoder, sink Sink, logger *logging.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Coordinator{
		source:     source,
		renderer:   renderer,
		encoder:    encoder,
		sink:       sink,
		logger:     logger.WithPhase("capture"),
		frameDelay: DefaultFrameDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot renders the current screen and saves it as <name>.png.
func (c *Coordinator) Snapshot(name string) (string, error) {
	data, err := c.render()
	if err != nil {
		return "", errors.NewCaptureError("screenshot failed", err).WithName(name).WithStage(StageRender)
	}

	path, err := c.sink.Save(name+".png", data)
	if err != nil {
		return "", errors.NewCaptureError("screenshot failed", err).WithName(name).WithStage(StageSave)
	}

	c.artifacts = append(c.artifacts, Artifact{Name: name, Path: path, Frames: 1})
	c.logger.Info("screenshot saved", "name", name, "path", path, "bytes", len(data))
	return path, nil
}

// StartRecording begins a new frame sequence.
func (c *Coordinator) StartRecording() error {
	if c.recording {
		return errors.ErrAlreadyRecording
	}
	c.recording = true
	c.frames = nil
	c.logger.Debug("recording started")
	return nil
}

// CaptureFrame renders the current screen and appends it to the active
// sequence. The caller decides the cadence.
func (c *Coordinator) CaptureFrame() error {
	if !c.recording {
		return errors.ErrNotRecording
	}
	data, err := c.render()
	if err != nil {
		return errors.NewCaptureError("frame capture failed", err).WithStage(StageRender)
	}
	c.frames = append(c.frames, data)
	return nil
}

// StopRecording encodes the accumulated frames and saves them as
// <name>.<ext>. Recording state is cleared whether or not encoding
// succeeds. When no recording is active it returns ("", false, nil).
func (c *Coordinator) StopRecording(name string) (path string, recorded bool, err error) {
	if !c.recording {
		return "", false, nil
	}
	frames := c.frames
	c.recording = false
	c.frames = nil

	data, err := c.encoder.Encode(frames, c.frameDelay)
	if err != nil {
		if !errors.Is(err, errors.ErrEncodeFailed) {
			err = fmt.Errorf("%w: %w", errors.ErrEncodeFailed, err)
		}
		return "", true, errors.NewCaptureError("recording failed", err).WithName(name).WithStage(StageEncode)
	}

	path, err = c.sink.Save(name+"."+c.encoder.Extension(), data)
	if err != nil {
		return "", true, errors.NewCaptureError("recording failed", err).WithName(name).WithStage(StageSave)
	}

	c.artifacts = append(c.artifacts, Artifact{Name: name, Path: path, Frames: len(frames)})
	c.logger.Info("recording saved", "name", name, "path", path, "frames", len(frames), "bytes", len(data))
	return path, true, nil
}

// CancelRecording drops the active sequence without encoding it.
func (c *Coordinator) CancelRecording() {
	if c.recording {
		c.logger.Debug("recording discarded", "frames", len(c.frames))
	}
	c.recording = false
	c.frames = nil
}

// Recording reports whether a frame sequence is active.
func (c *Coordinator) Recording() bool { return c.recording }

// Artifacts returns the captures saved so far, in order.
func (c *Coordinator) Artifacts() []Artifact {
	out := make([]Artifact, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}

func (c *Coordinator) render() ([]byte, error) {
	data, err := c.renderer.Render(c.source.Frame())
	if err != nil {
		if errors.Is(err, errors.ErrRenderFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrRenderFailed, err)
	}
	return data, nil
}
