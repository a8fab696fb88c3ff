package media

import "strings"

// Kind is the platform delivery mode of a message.
type Kind string

const (
	KindText      Kind = "text"
	KindDocument  Kind = "document"
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindVoice     Kind = "voice"
	KindAnimation Kind = "animation"
)

func (k Kind) String() string {
	return string(k)
}

// Classify maps a declared MIME type to a delivery kind. forceRaw or a
// missing MIME type always yields a document. Matching is by substring, the
// first rule that matches wins.
func Classify(mime string, forceRaw bool) Kind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if forceRaw || mime == "" {
		return KindDocument
	}
	switch {
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "png"):
		return KindPhoto
	case strings.Contains(mime, "mp4"):
		return KindVideo
	case strings.Contains(mime, "audio/mpeg"), strings.Contains(mime, "m4a"):
		return KindAudio
	case strings.Contains(mime, "audio/ogg"):
		return KindVoice
	case strings.Contains(mime, "image/gif"):
		return KindAnimation
	default:
		return KindDocument
	}
}
