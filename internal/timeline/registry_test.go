package timeline

import (
	"image"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/reel/internal/audio"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/resources"
)

// stubElement is a video element that counts releases
type stubElement struct {
	position float64
	duration float64
	paused   int
	released int
}

func (e *stubElement) Position() float64 { return e.position }
func (e *stubElement) SetPosition(t float64) error { e.position = t; return nil }
func (e *stubElement) Duration() float64 { return e.duration }
func (e *stubElement) Play() error { return nil }
func (e *stubElement) Pause() error { e.paused++; return nil }
func (e *stubElement) Ready() bool { return true }
func (e *stubElement) Frame() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }
func (e *stubElement) Release() error { e.released++; return nil }

func emptyBuffer() *beep.Buffer {
	return beep.NewBuffer(beep.Format{SampleRate: 48000, NumChannels: 2, Precision: 2})
}

func TestAppendVideoClip_PlacesBackToBack(t *testing.T) {
	r := NewRegistry(nil)
	durations := []float64{3, 4.5, 2, 10}

	var clips []*VideoClip
	for _, d := range durations {
		c, err := r.AppendVideoClip(&stubElement{duration: d}, d)
		require.NoError(t, err)
		clips = append(clips, c)
	}

	sum := 0.0
	for i, c := range clips {
		p := c.Placement()
		assert.Equal(t, sum, p.TimelineStart, "clip %d start", i)
		sum += durations[i]
		assert.Equal(t, sum, p.TimelineEnd, "clip %d end", i)
		assert.Equal(t, durations[i], p.ClipDuration)
		assert.Equal(t, 0.0, p.ClipStartOffset)
		assert.Equal(t, models.TrackVideo, c.Kind())
	}

	track := r.VideoTrack().Clips()
	for i := 1; i < len(track); i++ {
		assert.Equal(t, track[i-1].Placement().TimelineEnd, track[i].Placement().TimelineStart)
	}
	assert.Equal(t, sum, r.ProjectDuration())
}

func TestProjectDuration_IsMonotonic(t *testing.T) {
	r := NewRegistry(nil)
	steps := []struct {
		video bool
		d     float64
	}{
		{true, 5}, {false, 2}, {false, 2}, {false, 4}, {true, 1}, {true, 6},
	}

	prev := 0.0
	for _, s := range steps {
		if s.video {
			_, err := r.AppendVideoClip(&stubElement{}, s.d)
			require.NoError(t, err)
		} else {
			_, err := r.AppendAudioClip(emptyBuffer(), s.d, nil)
			require.NoError(t, err)
		}

		want := math.Max(prev, math.Max(r.VideoTrack().End(), r.AudioTrack().End()))
		assert.GreaterOrEqual(t, r.ProjectDuration(), prev)
		assert.Equal(t, want, r.ProjectDuration())
		prev = r.ProjectDuration()
	}
	assert.Equal(t, 12.0, r.ProjectDuration())
}

func TestAppend_RejectsInvalidDurations(t *testing.T) {
	for _, d := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		r := NewRegistry(nil)

		_, err := r.AppendVideoClip(&stubElement{}, d)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindValidation))

		_, err = r.AppendAudioClip(emptyBuffer(), d, nil)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindValidation))

		assert.True(t, r.Empty())
		assert.Equal(t, 0.0, r.ProjectDuration())
	}
}

func TestAppend_RejectsMissingMedia(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.AppendVideoClip(nil, 5)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = r.AppendAudioClip(nil, 5, nil)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.True(t, r.Empty())
}

func TestAppendAudioClip_DefaultsToUnityGain(t *testing.T) {
	r := NewRegistry(nil)
	c, err := r.AppendAudioClip(emptyBuffer(), 3, nil)
	require.NoError(t, err)
	require.NotNil(t, c.Bus())
	assert.Equal(t, 1.0, c.Bus().Gain())

	bus := audio.NewGainUnit(0.4)
	c2, err := r.AppendAudioClip(emptyBuffer(), 3, bus)
	require.NoError(t, err)
	assert.Same(t, bus, c2.Bus())
	assert.Equal(t, 3.0, c2.Placement().TimelineStart)
}

func TestRemoveClip_ReleasesOnceAndLeavesGap(t *testing.T) {
	rm := resources.NewManager()
	r := NewRegistry(rm)

	el := &stubElement{}
	dirReleases := 0
	dir := resources.HandleFunc(func() error { dirReleases++; return nil })

	first, err := r.AppendVideoClip(el, 4, dir)
	require.NoError(t, err)
	second, err := r.AppendVideoClip(&stubElement{}, 6)
	require.NoError(t, err)

	removed, err := r.RemoveClip(models.TrackVideo, first.Placement().ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemoveClip(models.TrackVideo, first.Placement().ID)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, 1, el.released)
	assert.Equal(t, 1, el.paused)
	assert.Equal(t, 1, dirReleases)

	// Later clips keep their place and the project does not shrink
	assert.Equal(t, 4.0, second.Placement().TimelineStart)
	assert.Equal(t, 10.0, r.ProjectDuration())

	third, err := r.AppendVideoClip(&stubElement{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, third.Placement().TimelineStart)
	assert.Equal(t, 12.0, r.ProjectDuration())
}

func TestRemoveClip_AudioReleasesGainUnit(t *testing.T) {
	r := NewRegistry(nil)
	c, err := r.AppendAudioClip(emptyBuffer(), 3, nil)
	require.NoError(t, err)

	removed, err := r.RemoveClip(models.TrackAudio, c.Placement().ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.ErrorIs(t, c.Bus().Connect(audio.NewOutput(48000)), audio.ErrGainReleased)
	assert.Equal(t, 3.0, r.ProjectDuration())
}

func TestRemoveClip_WrongTrackOrKind(t *testing.T) {
	r := NewRegistry(nil)
	c, err := r.AppendAudioClip(emptyBuffer(), 3, nil)
	require.NoError(t, err)

	removed, err := r.RemoveClip(models.TrackVideo, c.Placement().ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = r.RemoveClip(models.TrackKind("subtitle"), c.Placement().ID)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, found := r.Find(c.Placement().ID)
	assert.True(t, found)
}

func TestClose_ReleasesEverythingOnce(t *testing.T) {
	r := NewRegistry(nil)
	elements := []*stubElement{{}, {}}
	for _, el := range elements {
		_, err := r.AppendVideoClip(el, 2)
		require.NoError(t, err)
	}
	ac, err := r.AppendAudioClip(emptyBuffer(), 2, nil)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	for _, el := range elements {
		assert.Equal(t, 1, el.released)
	}
	assert.False(t, ac.Bus().Connected())
	assert.True(t, r.Empty())

	_, err = r.AppendVideoClip(&stubElement{}, 2)
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistry_LayersVoicesAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	v1, _ := r.AppendVideoClip(&stubElement{}, 5)
	v2, _ := r.AppendVideoClip(&stubElement{}, 5)
	a1, _ := r.AppendAudioClip(emptyBuffer(), 7, nil)

	layers := r.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, v1.Placement().ID, layers[0].Placement().ID)
	assert.Equal(t, v2.Placement().ID, layers[1].Placement().ID)

	voices := r.Voices()
	require.Len(t, voices, 1)
	assert.Equal(t, a1.Placement().ID, voices[0].Placement().ID)

	at, ok := r.VideoTrack().At(6)
	require.True(t, ok)
	assert.Equal(t, v2, at)
	_, ok = r.VideoTrack().At(10)
	assert.False(t, ok)

	found, ok := r.Find(a1.Placement().ID)
	require.True(t, ok)
	assert.Equal(t, models.TrackAudio, found.Kind())
	_, ok = r.Find(uuid.New())
	assert.False(t, ok)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(nil)
	v, _ := r.AppendVideoClip(&stubElement{}, 5)
	v.SetLabel("intro.mp4")
	a, _ := r.AppendAudioClip(emptyBuffer(), 3, audio.NewGainUnit(0.8))
	a.SetLabel("Theme")

	snap := r.Snapshot()
	require.Len(t, snap.Video, 1)
	require.Len(t, snap.Audio, 1)
	assert.Equal(t, "intro.mp4", snap.Video[0].Label)
	assert.Nil(t, snap.Video[0].Gain)
	assert.Equal(t, models.TrackAudio, snap.Audio[0].Track)
	require.NotNil(t, snap.Audio[0].Gain)
	assert.Equal(t, 0.8, *snap.Audio[0].Gain)
	assert.Equal(t, 5.0, snap.ProjectDuration)
}

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{9.99, "00:09"},
		{65, "01:05"},
		{600, "10:00"},
		{6000, "100:00"},
		{-3, "00:00"},
		{math.NaN(), "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimecode(tt.seconds))
		})
	}
}

func TestSecondsAtPixel(t *testing.T) {
	assert.Equal(t, 2.0, SecondsAtPixel(60, 30))
	assert.Equal(t, 0.0, SecondsAtPixel(-15, 30))
	assert.Equal(t, 1.0, SecondsAtPixel(30, 0))
	assert.Equal(t, 90.0, PixelAtSeconds(3, 30))
}
