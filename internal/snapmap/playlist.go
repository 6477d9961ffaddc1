package snapmap

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Playlist is the content set the map API returns for a coordinate.
// An empty playlist is a valid answer meaning "nothing posted here".
type Playlist struct {
	TotalCount int       `json:"totalCount"`
	Elements   []Element `json:"elements"`
}

// Count is the number of elements actually delivered. TotalCount is
// advisory and frequently absent.
func (p *Playlist) Count() int {
	if p == nil {
		return 0
	}
	return len(p.Elements)
}

// Element is a single story. Every nested field may be missing; callers must
// check before dereferencing.
type Element struct {
	ID        string    `json:"id"`
	Timestamp Millis    `json:"timestamp"`
	SnapInfo  *SnapInfo `json:"snapInfo,omitempty"`
}

type SnapInfo struct {
	SnapMediaType      MediaType           `json:"snapMediaType,omitempty"`
	StreamingMediaInfo *StreamingMediaInfo `json:"streamingMediaInfo,omitempty"`
	PublicMediaInfo    *PublicMediaInfo    `json:"publicMediaInfo,omitempty"`
}

// IsVideo reports whether the story is a video. Either marker is enough; the
// API omits the media type for images.
func (si *SnapInfo) IsVideo() bool {
	return si.StreamingMediaInfo != nil || si.SnapMediaType.IsSet()
}

// MediaType is the API's media kind marker. It arrives as an enum name or as
// its numeric value, where zero means an image.
type MediaType string

func (t *MediaType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("media type: %w", err)
		}
		*t = MediaType(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	*t = MediaType(data)
	return nil
}

// IsSet reports whether the marker names a non-image kind.
func (t MediaType) IsSet() bool {
	return t != "" && t != "0"
}

// StreamingMediaInfo describes a video. Full URLs are PrefixURL joined with
// one of the media suffixes. A non-empty OverlayURL means the story has a
// caption layer and the embedded variant should be played.
type StreamingMediaInfo struct {
	PrefixURL           string `json:"prefixUrl"`
	MediaURL            string `json:"mediaUrl"`
	MediaWithOverlayURL string `json:"mediaWithOverlayUrl,omitempty"`
	OverlayURL          string `json:"overlayUrl,omitempty"`
}

const (
	EmbeddedSuffix = "embedded.mp4"
	PlainSuffix    = "media.mp4"
)

// VideoSuffix returns the media suffix to join with PrefixURL, preferring the
// overlay variant when the story has one. Explicit suffixes from the payload
// win over the conventional names.
func (s *StreamingMediaInfo) VideoSuffix() string {
	if s.OverlayURL != "" || s.MediaWithOverlayURL != "" {
		if s.MediaWithOverlayURL != "" {
			return s.MediaWithOverlayURL
		}
		return EmbeddedSuffix
	}
	if s.MediaURL != "" {
		return s.MediaURL
	}
	return PlainSuffix
}

type PublicMediaInfo struct {
	PublicImageMediaInfo *MediaInfo `json:"publicImageMediaInfo,omitempty"`
}

type MediaInfo struct {
	MediaURL string `json:"mediaUrl"`
}

// Millis is an epoch timestamp in milliseconds. The API sends it either as a
// JSON number or as a numeric string.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		if s == "" {
			*m = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", data, err)
	}
	*m = Millis(n)
	return nil
}

// Time converts the timestamp. The zero Millis maps to the zero time.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}
