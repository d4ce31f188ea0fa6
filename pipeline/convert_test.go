package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ffmerge/command"
	"ffmerge/preset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_MissingPresetRunsNothing(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestPipeline(runner, &fakeProber{})

	res, err := p.Convert(context.Background(), ConvertRequest{Input: "a.avi", Preset: "no-such-preset"})
	assert.ErrorIs(t, err, preset.ErrNotFound)
	assert.Nil(t, res)
	assert.Empty(t, runner.Lines())
}

func TestConvert_PresetThenCallerOptions(t *testing.T) {
	_, inputs := writeInputs(t, "clip.avi")
	runner := &fakeRunner{}
	p := newTestPipeline(runner, &fakeProber{})

	res, err := p.Convert(context.Background(), ConvertRequest{
		Input:     inputs[0],
		Preset:    preset.MP4,
		Overwrite: true,
		Options: []func(*command.Builder){
			func(b *command.Builder) { b.AudioBitrate("192k").Size(640, 360) },
		},
	})
	require.NoError(t, err)

	want := strings.TrimSuffix(inputs[0], ".avi") + ".mp4"
	assert.Equal(t, want, res.OutputPath)
	assert.FileExists(t, want)
	assert.Equal(t,
		"ffmpeg -y -i '"+inputs[0]+"' -c:v libx264 -preset veryfast -pix_fmt yuv420p -c:a aac -b:a 128k"+
			" -movflags +faststart -b:a 192k -s 640x360 '"+want+"'",
		res.CommandLine)
	assert.Equal(t, []string{res.CommandLine}, runner.Lines())
	assert.True(t, res.Result.Success)
}

func TestConvert_ToOverridesPresetExtension(t *testing.T) {
	_, inputs := writeInputs(t, "clip.avi")
	dir := filepath.Dir(inputs[0])
	p := newTestPipeline(&fakeRunner{}, &fakeProber{})

	b, err := p.ConvertCommand(ConvertRequest{Input: inputs[0], Preset: preset.WebM, To: "mkv"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.mkv"), b.GetOutputPath())

	b, err = p.ConvertCommand(ConvertRequest{Input: inputs[0], To: "/out/final.ogv"})
	require.NoError(t, err)
	assert.Equal(t, "/out/final.ogv", b.GetOutputPath())
	assert.Equal(t, "ffmpeg -i '"+inputs[0]+"' '/out/final.ogv'", b.CommandLine("ffmpeg"))
}

func TestConvertCommand_Errors(t *testing.T) {
	p := newTestPipeline(&fakeRunner{}, &fakeProber{})

	_, err := p.ConvertCommand(ConvertRequest{})
	assert.Error(t, err)

	_, err = p.ConvertCommand(ConvertRequest{Input: "a.avi"})
	assert.ErrorIs(t, err, command.ErrNoOutput)

	_, err = p.ConvertCommand(ConvertRequest{Input: "a.mpg", Preset: preset.MPEG})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overwrite the input")
}

func TestConvert_Failure(t *testing.T) {
	_, inputs := writeInputs(t, "broken.avi")
	runner := &fakeRunner{fail: map[string]bool{"broken.avi": true}}
	p := newTestPipeline(runner, &fakeProber{})

	res, err := p.Convert(context.Background(), ConvertRequest{Input: inputs[0], To: "mp4"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvertFailed)
	require.NotNil(t, res)
	assert.False(t, res.Result.Success)
	assert.Contains(t, err.Error(), "Invalid data found")
}
