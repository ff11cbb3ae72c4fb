package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Iron-Ham/kla/internal/errors"
)

// TranscriptExt is the file extension of saved transcripts.
const TranscriptExt = ".kla.zst"

// transcriptVersion is bumped on incompatible header changes.
const transcriptVersion = 1

// TranscriptHeader describes the terminal a transcript was recorded in.
// It is written as one JSON line ahead of the raw output so a transcript
// can be replayed into a terminal of the right size.
type TranscriptHeader struct {
	Version    int       `json:"version"`
	Name       string    `json:"name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RecordedAt time.Time `json:"recorded_at"`
}

// WriteTranscript writes a zstd stream holding h and data to w.
func WriteTranscript(w io.Writer, h TranscriptHeader, data []byte) error {
	h.Version = transcriptVersion

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}

	header, err := json.Marshal(h)
	if err != nil {
		_ = enc.Close()
		return fmt.Errorf("encoding transcript header: %w", err)
	}
	if _, err := enc.Write(append(header, '\n')); err != nil {
		_ = enc.Close()
		return fmt.Errorf("writing transcript header: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("writing transcript: %w", err)
	}
	return enc.Close()
}

// ReadTranscript decodes a stream written by WriteTranscript.
func ReadTranscript(r io.Reader) (TranscriptHeader, []byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return TranscriptHeader{}, nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return TranscriptHeader{}, nil, fmt.Errorf("%w: reading transcript header: %w", errors.ErrUnsupportedFormat, err)
	}

	var h TranscriptHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return TranscriptHeader{}, nil, fmt.Errorf("%w: transcript header: %w", errors.ErrUnsupportedFormat, err)
	}
	if h.Version != transcriptVersion {
		return TranscriptHeader{}, nil, fmt.Errorf("%w: transcript version %d", errors.ErrUnsupportedFormat, h.Version)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return TranscriptHeader{}, nil, fmt.Errorf("reading transcript: %w", err)
	}
	return h, data, nil
}
