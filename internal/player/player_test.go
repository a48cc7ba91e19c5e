package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"melodeck/internal/normalize"
	"melodeck/internal/render"
	"melodeck/internal/testutil"
	"melodeck/internal/ui"
)

type mockSongs struct {
	mock.Mock
}

func (m *mockSongs) Song(ctx context.Context, id string) (gjson.Result, error) {
	args := m.Called(ctx, id)
	raw, _ := args.Get(0).(string)
	return gjson.Parse(raw), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Play(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockSink) Pause(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSink) Resume(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newController(songs SongFetcher, sink AudioSink) (*Controller, *testutil.RecordingSurface) {
	surface := testutil.NewRecordingSurface()
	renderer := render.NewRenderer(normalize.New(normalize.DefaultPlaceholderImage), 6, nil)
	return NewController(songs, sink, renderer, surface), surface
}

func songJSON(record testutil.Record) string {
	return gjson.Get(testutil.Envelope(record), "data").Raw
}

func TestPlaySong_Success(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "song-1").Return(songJSON(testutil.SongRecord("song-1", "Kesariya", "Arijit Singh")), nil)
	sink := new(mockSink)
	sink.On("Play", ctx, "https://cdn.example.com/song-1_320.mp4").Return(nil)

	c, surface := newController(songs, sink)
	require.NoError(t, c.PlaySong(ctx, "song-1"))

	state := c.State()
	assert.True(t, state.IsPlaying)
	assert.Equal(t, "Kesariya", state.Title)
	assert.Equal(t, "Arijit Singh", state.Artist)
	assert.Equal(t, "320kbps", state.Quality)
	assert.Equal(t, "https://img.example.com/song-1/500x500.jpg", state.ImageURL)

	assert.Equal(t, "Kesariya", surface.Text(ui.PlayerTitle))
	assert.Equal(t, "Arijit Singh", surface.Text(ui.PlayerArtist))
	assert.Contains(t, surface.HTML(ui.PlayButton), "fa-pause")
	assert.Empty(t, surface.Alerts())
	sink.AssertExpectations(t)
}

func TestPlaySong_NoPlayableURL(t *testing.T) {
	ctx := context.Background()
	record := testutil.SongRecord("song-2", "Silent", "Nobody")
	record["downloadUrl"] = []any{}

	songs := new(mockSongs)
	songs.On("Song", ctx, "song-2").Return(songJSON(record), nil)
	sink := new(mockSink)

	c, surface := newController(songs, sink)
	err := c.PlaySong(ctx, "song-2")

	assert.ErrorIs(t, err, ErrNoPlayableURL)
	assert.Equal(t, []string{MsgNoAudio}, surface.Alerts())
	assert.Empty(t, surface.For(ui.PlayerTitle), "player UI is left unchanged")
	assert.Empty(t, surface.For(ui.PlayerImage))
	assert.Empty(t, c.State().CurrentAudioURL)
	sink.AssertNotCalled(t, "Play", mock.Anything, mock.Anything)
}

func TestPlaySong_FetchFailure(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "x").Return(nil, assert.AnError)

	c, surface := newController(songs, new(mockSink))
	err := c.PlaySong(ctx, "x")

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{MsgLoadFailed}, surface.Alerts())
}

func TestPlaySong_Rejected(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "song-1").Return(songJSON(testutil.SongRecord("song-1", "Title", "Artist")), nil)
	sink := new(mockSink)
	sink.On("Play", ctx, mock.Anything).Return(errors.New("NotAllowedError"))

	c, surface := newController(songs, sink)
	err := c.PlaySong(ctx, "song-1")

	assert.ErrorIs(t, err, ErrPlaybackRejected)
	assert.Equal(t, []string{MsgRejected}, surface.Alerts())
	assert.NotEqual(t, MsgNoAudio, MsgRejected)
	assert.False(t, c.State().IsPlaying)
	assert.Contains(t, surface.HTML(ui.PlayButton), "fa-play", "button is not flipped without confirmation")
	assert.NotContains(t, surface.HTML(ui.PlayButton), "fa-pause")
}

// blockingSink holds Play until released, so a second request can overtake the first
type blockingSink struct {
	mu      sync.Mutex
	started chan string
	release map[string]chan error
}

func (s *blockingSink) Play(_ context.Context, url string) error {
	s.mu.Lock()
	ch := make(chan error, 1)
	s.release[url] = ch
	s.mu.Unlock()
	s.started <- url
	return <-ch
}

func (s *blockingSink) finish(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release[url] <- err
}

func (s *blockingSink) Pause(context.Context) error  { return nil }
func (s *blockingSink) Resume(context.Context) error { return nil }

func TestPlaySong_SupersededAttemptIsSilent(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "song-a").Return(songJSON(testutil.SongRecord("song-a", "A", "X")), nil)
	songs.On("Song", ctx, "song-b").Return(songJSON(testutil.SongRecord("song-b", "B", "Y")), nil)
	sink := &blockingSink{started: make(chan string, 2), release: map[string]chan error{}}

	c, surface := newController(songs, sink)

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.PlaySong(ctx, "song-a") }()
	<-sink.started

	secondDone := make(chan error, 1)
	go func() { secondDone <- c.PlaySong(ctx, "song-b") }()
	<-sink.started

	sink.finish("https://cdn.example.com/song-b_320.mp4", nil)
	require.NoError(t, <-secondDone)

	sink.finish("https://cdn.example.com/song-a_320.mp4", errors.New("AbortError"))
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)

	assert.Empty(t, surface.Alerts())
	assert.Equal(t, "B", c.State().Title)
	assert.True(t, c.State().IsPlaying)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "song-1").Return(songJSON(testutil.SongRecord("song-1", "T", "A")), nil)
	sink := new(mockSink)
	sink.On("Play", ctx, mock.Anything).Return(nil)
	sink.On("Pause", ctx).Return(nil).Once()
	sink.On("Resume", ctx).Return(nil).Once()

	c, surface := newController(songs, sink)

	// nothing loaded: no-op
	require.NoError(t, c.Toggle(ctx))
	sink.AssertNotCalled(t, "Pause", mock.Anything)

	require.NoError(t, c.PlaySong(ctx, "song-1"))

	require.NoError(t, c.Toggle(ctx))
	assert.False(t, c.State().IsPlaying)
	assert.Contains(t, surface.HTML(ui.PlayButton), "fa-play")

	require.NoError(t, c.Toggle(ctx))
	assert.True(t, c.State().IsPlaying)
	assert.Contains(t, surface.HTML(ui.PlayButton), "fa-pause")
	sink.AssertExpectations(t)
}

func TestToggle_ResumeRejected(t *testing.T) {
	ctx := context.Background()
	songs := new(mockSongs)
	songs.On("Song", ctx, "song-1").Return(songJSON(testutil.SongRecord("song-1", "T", "A")), nil)
	sink := new(mockSink)
	sink.On("Play", ctx, mock.Anything).Return(errors.New("blocked"))
	sink.On("Resume", ctx).Return(errors.New("still blocked"))

	c, surface := newController(songs, sink)
	_ = c.PlaySong(ctx, "song-1")

	err := c.Toggle(ctx)
	assert.ErrorIs(t, err, ErrPlaybackRejected)
	assert.False(t, c.State().IsPlaying)
	assert.Len(t, surface.Alerts(), 2)
}
