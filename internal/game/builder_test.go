package game

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/whereami/internal/snapmap"
	"github.com/playperu/whereami/internal/whereami"
)

func newTestBuilder(seed uint64) *Builder {
	return NewBuilder(
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewPCG(seed, seed+1))),
	)
}

func TestBuildRoundDistinctClues(t *testing.T) {
	for seed := range uint64(20) {
		b := newTestBuilder(seed)
		for k := 1; k <= 15; k++ {
			for _, n := range []int{k, k + 1, 2 * k, 40} {
				round, err := b.BuildRound(playlistOf(n), paris, k)
				require.NoError(t, err, "k=%d n=%d", k, n)
				require.Len(t, round.Clues, k)

				ids := map[string]bool{}
				for _, c := range round.Clues {
					assert.False(t, ids[c.SourceID], "duplicate id %s (k=%d n=%d)", c.SourceID, k, n)
					ids[c.SourceID] = true
				}
			}
		}
	}
}

func TestBuildRoundPackagesLocation(t *testing.T) {
	round, err := newTestBuilder(1).BuildRound(playlistOf(10), paris, 5)
	require.NoError(t, err)

	assert.Equal(t, whereami.Coordinates{Lat: 48.8, Lng: 2.3}, round.Coordinates)
	assert.Equal(t, whereami.Place{City: "Paris", Country: "France"}, round.Location)
	for _, c := range round.Clues {
		assert.Equal(t, "1 hours ago", c.Timestamp)
	}
}

func TestBuildRoundInsufficient(t *testing.T) {
	// A nil rng panics if the builder tries to sample.
	b := NewBuilder(WithRand(nil))

	for _, n := range []int{0, 1, 4} {
		_, err := b.BuildRound(playlistOf(n), paris, 5)
		assert.ErrorIs(t, err, ErrInsufficientContent, "n=%d", n)
	}

	_, err := b.BuildRound(nil, paris, 1)
	assert.ErrorIs(t, err, ErrInsufficientContent)
}

func TestBuildRoundRepeatedIDs(t *testing.T) {
	pl := &snapmap.Playlist{}
	for i := range 30 {
		pl.Elements = append(pl.Elements, imageElement(fmt.Sprintf("s%d", i%3)))
	}

	_, err := newTestBuilder(7).BuildRound(pl, paris, 5)
	assert.ErrorIs(t, err, ErrInsufficientContent)

	round, err := newTestBuilder(7).BuildRound(pl, paris, 3)
	require.NoError(t, err)
	assert.Len(t, round.Clues, 3)
}

func TestBuildRoundMediaClassification(t *testing.T) {
	tests := []struct {
		name      string
		el        snapmap.Element
		wantURL   string
		wantImage bool
	}{
		{
			name:    "video with overlay",
			el:      videoElement("v1", "media.mp4", "embedded.mp4"),
			wantURL: "https://cdn.example/v1/embedded.mp4",
		},
		{
			name:    "video without overlay",
			el:      videoElement("v2", "media.mp4", ""),
			wantURL: "https://cdn.example/v2/media.mp4",
		},
		{
			name:    "overlay without explicit variant",
			el:      overlayElement("v3", "media.mp4"),
			wantURL: "https://cdn.example/v3/embedded.mp4",
		},
		{
			name:    "overlay with prefix only",
			el:      overlayElement("v4", ""),
			wantURL: "https://cdn.example/v4/embedded.mp4",
		},
		{
			name:    "prefix only",
			el:      videoElement("v5", "", ""),
			wantURL: "https://cdn.example/v5/media.mp4",
		},
		{
			name:      "image",
			el:        imageElement("i1"),
			wantURL:   "https://cdn.example/i1.jpg",
			wantImage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := &snapmap.Playlist{Elements: []snapmap.Element{tt.el}}
			round, err := newTestBuilder(1).BuildRound(pl, paris, 1)
			require.NoError(t, err)
			require.Len(t, round.Clues, 1)

			c := round.Clues[0]
			assert.Equal(t, tt.wantURL, c.URL)
			assert.Equal(t, tt.wantImage, c.IsImage)
			assert.Equal(t, tt.el.ID, c.SourceID)
		})
	}
}

func TestBuildRoundMalformed(t *testing.T) {
	noInfo := imageElement("a")
	noInfo.SnapInfo = nil

	noPrefix := videoElement("b", "media.mp4", "embedded.mp4")
	noPrefix.SnapInfo.StreamingMediaInfo.PrefixURL = ""

	videoWithoutStream := imageElement("c")
	videoWithoutStream.SnapInfo.SnapMediaType = "SNAP_MEDIA_TYPE_VIDEO"

	noImageURL := imageElement("d")
	noImageURL.SnapInfo.PublicMediaInfo.PublicImageMediaInfo = nil

	noTimestamp := imageElement("e")
	noTimestamp.Timestamp = 0

	noID := imageElement("")

	for name, el := range map[string]snapmap.Element{
		"no snap info":   noInfo,
		"no prefix":      noPrefix,
		"no stream info": videoWithoutStream,
		"no image url":   noImageURL,
		"no timestamp":   noTimestamp,
		"no id":          noID,
	} {
		t.Run(name, func(t *testing.T) {
			pl := &snapmap.Playlist{Elements: []snapmap.Element{el}}
			_, err := newTestBuilder(1).BuildRound(pl, paris, 1)
			assert.ErrorIs(t, err, ErrMalformedContent)
		})
	}
}

func TestBuildRoundOneBadItemFailsRound(t *testing.T) {
	pl := playlistOf(5)
	pl.Elements[3].SnapInfo = nil

	_, err := newTestBuilder(3).BuildRound(pl, paris, 5)
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestBuildRoundCustomTimeFormatter(t *testing.T) {
	b := NewBuilder(
		WithClock(func() time.Time { return testNow }),
		WithTimeFormatter(func(now, captured time.Time) string { return captured.Format(time.RFC3339) }),
	)
	round, err := b.BuildRound(&snapmap.Playlist{Elements: []snapmap.Element{imageElement("x")}}, paris, 1)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-time.Hour).Local().Format(time.RFC3339), round.Clues[0].Timestamp)
}
