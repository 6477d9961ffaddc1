package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/snapmap"
	"github.com/playperu/whereami/internal/whereami"
)

var (
	testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	paris   = whereami.Location{City: "Paris", Country: "France", Lat: 48.8, Lng: 2.3}
	newYork = whereami.Location{City: "New York", Country: "United States", Lat: 40.7, Lng: -74}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func millisAgo(d time.Duration) snapmap.Millis {
	return snapmap.Millis(testNow.Add(-d).UnixMilli())
}

func videoElement(id, media, withOverlay string) snapmap.Element {
	return snapmap.Element{
		ID:        id,
		Timestamp: millisAgo(time.Hour),
		SnapInfo: &snapmap.SnapInfo{
			SnapMediaType: "SNAP_MEDIA_TYPE_VIDEO",
			StreamingMediaInfo: &snapmap.StreamingMediaInfo{
				PrefixURL:           "https://cdn.example/" + id + "/",
				MediaURL:            media,
				MediaWithOverlayURL: withOverlay,
			},
		},
	}
}

// overlayElement is a video flagged only by its overlay layer, the way most
// payloads arrive.
func overlayElement(id, media string) snapmap.Element {
	el := videoElement(id, media, "")
	el.SnapInfo.StreamingMediaInfo.OverlayURL = "https://cdn.example/" + id + "/overlay.png"
	return el
}

func imageElement(id string) snapmap.Element {
	return snapmap.Element{
		ID:        id,
		Timestamp: millisAgo(time.Hour),
		SnapInfo: &snapmap.SnapInfo{
			PublicMediaInfo: &snapmap.PublicMediaInfo{
				PublicImageMediaInfo: &snapmap.MediaInfo{MediaURL: "https://cdn.example/" + id + ".jpg"},
			},
		},
	}
}

// playlistOf returns n well-formed elements with ids s0..s(n-1), alternating
// videos and images.
func playlistOf(n int) *snapmap.Playlist {
	pl := &snapmap.Playlist{TotalCount: n}
	for i := range n {
		id := fmt.Sprintf("s%d", i)
		if i%2 == 0 {
			pl.Elements = append(pl.Elements, videoElement(id, "media.mp4", "embedded.mp4"))
		} else {
			pl.Elements = append(pl.Elements, imageElement(id))
		}
	}
	return pl
}

// stubSource is a LocationSource returning a fixed sequence of outcomes.
type stubSource struct {
	mu       sync.Mutex
	locs     []whereami.Location
	err      error
	picks    int
	recorded []whereami.Location
}

func (s *stubSource) Pick(context.Context, catalog.Filter) (whereami.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return whereami.Location{}, s.err
	}
	loc := s.locs[s.picks%len(s.locs)]
	s.picks++
	return loc, nil
}

func (s *stubSource) RecordSuccess(_ context.Context, loc whereami.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, loc)
	return nil
}

// stubFetcher answers each call with the next response in line, repeating
// the last one when it runs out.
type stubFetcher struct {
	mu        sync.Mutex
	responses []fetchResult
	calls     int
}

type fetchResult struct {
	pl  *snapmap.Playlist
	err error
}

func (f *stubFetcher) FetchPlaylist(context.Context, float64, float64, int, int) (*snapmap.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.responses)-1)
	f.calls++
	return f.responses[i].pl, f.responses[i].err
}

// byLatFetcher serves content depending on the requested latitude.
type byLatFetcher map[float64]*snapmap.Playlist

func (f byLatFetcher) FetchPlaylist(_ context.Context, lat, _ float64, _, _ int) (*snapmap.Playlist, error) {
	if pl, ok := f[lat]; ok {
		return pl, nil
	}
	return &snapmap.Playlist{}, nil
}

type memSaver struct {
	mu    sync.Mutex
	saved []whereami.Game
	err   error
}

func (m *memSaver) SaveGame(_ context.Context, g whereami.Game) (whereami.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return whereami.Game{}, m.err
	}
	g.ID = fmt.Sprintf("game-%d", len(m.saved)+1)
	g.CreatedAt = testNow
	m.saved = append(m.saved, g)
	return g, nil
}

type memCatalogStore struct {
	mu   sync.Mutex
	locs []whereami.Location
}

func (m *memCatalogStore) Load(context.Context) ([]whereami.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]whereami.Location(nil), m.locs...), nil
}

func (m *memCatalogStore) Save(_ context.Context, locs []whereami.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locs = append([]whereami.Location(nil), locs...)
	return nil
}
