package ffprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_PrefersVideoStream(t *testing.T) {
	rec := NewRecord(RawMetadata(sampleJSON))

	assert.Equal(t, "320x240", rec.Resolution())
	assert.Equal(t, "mpeg1video", rec["codec_name"])
	assert.Equal(t, "320", rec["width"])
	assert.Equal(t, "und", rec["tags.language"])
	assert.Equal(t, "mpeg", rec["format.format_name"])
	assert.Equal(t, "2.000000", rec["format.duration"])

	fps, ok := rec.FrameRate()
	require.True(t, ok)
	assert.InDelta(t, 25.0, fps, 1e-9)
}

func TestNewRecord_FallsBackToFirstStream(t *testing.T) {
	raw := RawMetadata(`{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{"format_name":"mov"}}`)
	rec := NewRecord(raw)

	v, ok := rec.Get("codec_name")
	require.True(t, ok)
	assert.Equal(t, "aac", v)
	assert.Equal(t, "", rec.Resolution())

	_, ok = rec.FrameRate()
	assert.False(t, ok)
}

func TestNewRecord_InvalidOrEmpty(t *testing.T) {
	assert.Empty(t, NewRecord(nil))
	assert.Empty(t, NewRecord(RawMetadata("not json")))
	assert.Empty(t, NewRecord(RawMetadata(`{}`)))
}

func TestRawMetadata_Get(t *testing.T) {
	raw := RawMetadata(sampleJSON)
	assert.True(t, raw.Valid())
	assert.Equal(t, int64(2), raw.Get("streams.#").Int())
	assert.Equal(t, "out.mpg", raw.Get("format.filename").String())
}
