// Package player drives the page's single audio element and the player bar.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"

	"melodeck/internal/models"
	"melodeck/internal/normalize"
	"melodeck/internal/render"
	"melodeck/internal/ui"
)

// Alert messages
const (
	MsgLoadFailed = "Unable to load this song. Please try again."
	MsgNoAudio    = "No playable audio found for this song."
	MsgRejected   = "Playback was blocked by the browser. Press play to start."
)

var (
	// ErrNoPlayableURL means the song record carries no usable audio URL
	ErrNoPlayableURL = errors.New("no playable audio url")

	// ErrPlaybackRejected means the audio element refused to start
	ErrPlaybackRejected = errors.New("playback rejected")

	// ErrSuperseded means a newer play request replaced this one
	ErrSuperseded = errors.New("playback superseded")
)

// SongFetcher loads a full song record
type SongFetcher interface {
	Song(ctx context.Context, id string) (gjson.Result, error)
}

// AudioSink is the audio element. Play and Resume return once playback has
// actually started, or with an error if it was refused.
type AudioSink interface {
	Play(ctx context.Context, url string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Controller owns the player state of one page. Only the latest play request
// may change the state; earlier ones finish with ErrSuperseded.
type Controller struct {
	songs      SongFetcher
	sink       AudioSink
	normalizer *normalize.Normalizer
	renderer   *render.Renderer
	surface    ui.Surface

	mu      sync.Mutex
	state   models.PlayerState
	attempt uint64
}

// NewController creates a player controller
func NewController(songs SongFetcher, sink AudioSink, renderer *render.Renderer, surface ui.Surface) *Controller {
	return &Controller{
		songs:      songs,
		sink:       sink,
		normalizer: renderer.Normalizer(),
		renderer:   renderer,
		surface:    surface,
	}
}

// State returns a snapshot of the player state
func (c *Controller) State() models.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempt++
	return c.attempt
}

func (c *Controller) currentLocked(attempt uint64) bool {
	return c.attempt == attempt
}

// PlaySong loads a song, resolves its audio URL and starts it. Failures are
// alerted to the user and returned; a superseded request returns
// ErrSuperseded without touching the page.
func (c *Controller) PlaySong(ctx context.Context, id string) error {
	attempt := c.begin()

	song, err := c.songs.Song(ctx, id)

	c.mu.Lock()
	if !c.currentLocked(attempt) {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		slog.Warn("Failed to load song", "song_id", id, "error", err)
		ui.Alert(c.surface, MsgLoadFailed)
		return fmt.Errorf("failed to load song %s: %w", id, err)
	}

	audioURL, quality, ok := normalize.ResolveAudioURL(song)
	if !ok {
		c.mu.Unlock()
		slog.Info("Song has no playable audio", "song_id", id)
		ui.Alert(c.surface, MsgNoAudio)
		return ErrNoPlayableURL
	}

	card := c.normalizer.Card(song, models.ItemTypeSong)
	c.state = models.PlayerState{
		SongID:          id,
		Title:           card.Title,
		Artist:          card.Subtitle,
		ImageURL:        card.ImageURL,
		CurrentAudioURL: audioURL,
		Quality:         quality,
		IsPlaying:       false,
	}
	ui.SetAttr(c.surface, ui.PlayerImage, "src", card.ImageURL)
	ui.SetText(c.surface, ui.PlayerTitle, card.Title)
	ui.SetText(c.surface, ui.PlayerArtist, card.Subtitle)
	ui.Replace(c.surface, ui.PlayButton, c.renderer.PlayIcon())
	c.mu.Unlock()

	err = c.sink.Play(ctx, audioURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(attempt) || errors.Is(err, ErrSuperseded) {
		return ErrSuperseded
	}
	if err != nil {
		slog.Info("Playback did not start", "song_id", id, "error", err)
		ui.Alert(c.surface, MsgRejected)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}

	c.state.IsPlaying = true
	ui.Replace(c.surface, ui.PlayButton, c.renderer.PauseIcon())
	return nil
}

// Toggle pauses a playing song or resumes a paused one. With nothing
// loaded it does nothing.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	if c.state.CurrentAudioURL == "" {
		c.mu.Unlock()
		return nil
	}

	if c.state.IsPlaying {
		defer c.mu.Unlock()
		c.attempt++
		if err := c.sink.Pause(ctx); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		c.state.IsPlaying = false
		ui.Replace(c.surface, ui.PlayButton, c.renderer.PlayIcon())
		return nil
	}

	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	err := c.sink.Resume(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(attempt) || errors.Is(err, ErrSuperseded) {
		return ErrSuperseded
	}
	if err != nil {
		ui.Alert(c.surface, MsgRejected)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}
	c.state.IsPlaying = true
	ui.Replace(c.surface, ui.PlayButton, c.renderer.PauseIcon())
	return nil
}
