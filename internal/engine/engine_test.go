package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectorSink records everything an engine pushes
type collectorSink struct {
	info     *Info
	segments []transcript.Segment
	infoErr  error
	segErr   error
}

func (c *collectorSink) Info(info Info) error {
	c.info = &info
	return c.infoErr
}

func (c *collectorSink) Segment(seg transcript.Segment) error {
	if c.segErr != nil {
		return c.segErr
	}
	c.segments = append(c.segments, seg)
	return nil
}

func writeFixture(t *testing.T, fixture StaticFixture) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	data, err := json.Marshal(fixture)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{name: "default is fasterwhisper", engine: "", wantName: "fasterwhisper"},
		{name: "fasterwhisper", engine: "fasterwhisper", wantName: "fasterwhisper"},
		{name: "openai with key", engine: "openai", cfg: Config{OpenAIKey: "sk-test"}, wantName: "openai"},
		{name: "openai without key", engine: "openai", wantErr: true},
		{name: "static", engine: "static", cfg: Config{FixturePath: "x.json"}, wantName: "static"},
		{name: "unknown", engine: "parakeet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := New(tt.engine, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, eng.Name())
		})
	}
}

func TestStaticRecognize(t *testing.T) {
	fixture := StaticFixture{
		Language: "en",
		Duration: 6.0,
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "first segment"},
			{Start: 2, End: 4, Text: "second segment"},
			{Start: 4, End: 6, Text: "third segment"},
		},
	}
	eng := NewStatic(writeFixture(t, fixture))

	sink := &collectorSink{}
	err := eng.Recognize(context.Background(), "/audio/x.wav", Options{}, sink)
	require.NoError(t, err)
	require.NotNil(t, sink.info)
	assert.Equal(t, "en", sink.info.Language)
	assert.Equal(t, 6.0, sink.info.DurationSec)
	require.Len(t, sink.segments, 3)
	assert.Equal(t, "first segment", sink.segments[0].Text)
	// IDs are filled in when the fixture omits them
	assert.NotEmpty(t, sink.segments[0].ID)
}

func TestStaticMissingFixtureIsLoadError(t *testing.T) {
	eng := NewStatic(filepath.Join(t.TempDir(), "missing.json"))
	err := eng.Recognize(context.Background(), "x.wav", Options{}, &collectorSink{})
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestStaticSinkErrorAborts(t *testing.T) {
	fixture := StaticFixture{Segments: []transcript.Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2, Text: "b"},
	}}
	eng := NewStatic(writeFixture(t, fixture))

	sentinel := errors.New("writer full")
	sink := &collectorSink{segErr: sentinel}
	err := eng.Recognize(context.Background(), "x.wav", Options{}, sink)
	assert.ErrorIs(t, err, sentinel)
	assert.Empty(t, sink.segments)
}
