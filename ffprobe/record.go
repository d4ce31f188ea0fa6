package ffprobe

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// RawMetadata is ffprobe's JSON output, surfaced to callers verbatim.
type RawMetadata []byte

// Valid reports whether the metadata is well-formed JSON.
func (m RawMetadata) Valid() bool {
	return len(m) > 0 && gjson.ValidBytes(m)
}

// Get evaluates a gjson path against the raw output.
func (m RawMetadata) Get(path string) gjson.Result {
	return gjson.GetBytes(m, path)
}

// FormatPrefix namespaces container fields in a Record.
const FormatPrefix = "format."

// Record is the flattened first record of a probe: the primary stream's
// fields, the container's fields under FormatPrefix, and a derived
// "resolution" of "WxH" when dimensions are known. Nested objects (tags,
// disposition) are flattened with dotted keys.
type Record map[string]string

// NewRecord flattens raw into a Record. An output without streams or format
// yields an empty record.
func NewRecord(raw RawMetadata) Record {
	rec := Record{}
	if !raw.Valid() {
		return rec
	}

	stream := raw.Get(`streams.#(codec_type=="video")`)
	if !stream.Exists() {
		stream = raw.Get("streams.0")
	}
	flatten(rec, "", stream)
	flatten(rec, FormatPrefix, raw.Get("format"))

	w, h := stream.Get("width").Int(), stream.Get("height").Int()
	if w > 0 && h > 0 {
		rec["resolution"] = fmt.Sprintf("%dx%d", w, h)
	}
	return rec
}

func flatten(rec Record, prefix string, obj gjson.Result) {
	if !obj.IsObject() {
		return
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		name := prefix + key.String()
		switch {
		case value.IsObject():
			flatten(rec, name+".", value)
		case value.IsArray():
			rec[name] = value.Raw
		default:
			rec[name] = value.String()
		}
		return true
	})
}

// Get returns the named field.
func (r Record) Get(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// Resolution returns the derived "WxH" field.
func (r Record) Resolution() string {
	return r["resolution"]
}

// FrameRate parses the primary stream's r_frame_rate.
func (r Record) FrameRate() (float64, bool) {
	if fps, ok := ParseRatio(r["r_frame_rate"]); ok {
		return fps, true
	}
	return ParseRatio(r["avg_frame_rate"])
}
