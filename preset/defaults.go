package preset

import "ffmerge/command"

// Built-in preset names.
const (
	MPEG = "mpeg"
	MP4  = "mp4"
	WebM = "webm"
	FLV  = "flv"
)

// RegisterDefaults defines the built-in presets on r.
func RegisterDefaults(r *Registry) {
	r.Define(MPEG, "mpg", func(b *command.Builder) {
		b.Format("mpeg")
	})

	r.Define(MP4, "mp4", func(b *command.Builder) {
		b.VideoCodec("libx264").
			Option("-preset veryfast").
			Option("-pix_fmt yuv420p").
			AudioCodec("aac").
			AudioBitrate("128k").
			Option("-movflags +faststart")
	})

	r.Define(WebM, "webm", func(b *command.Builder) {
		b.VideoCodec("libvpx-vp9").
			Option("-row-mt 1").
			AudioCodec("libopus").
			AudioBitrate("96k")
	})

	r.Define(FLV, "flv", func(b *command.Builder) {
		b.VideoCodec("flv").
			AudioCodec("libmp3lame").
			Option("-ar 22050")
	})
}

// Default returns a new registry holding the built-in presets.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
