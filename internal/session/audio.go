package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"melodeck/internal/player"
	"melodeck/internal/ui"
)

// ErrConfirmTimeout means the browser never acknowledged a play request
var ErrConfirmTimeout = errors.New("playback not confirmed in time")

// audioBridge is the AudioSink for a browser page. Play and resume are sent
// as patches carrying a token; the page acknowledges each token once the
// audio element starts or refuses.
type audioBridge struct {
	surface ui.Surface
	timeout time.Duration

	mu      sync.Mutex
	next    uint64
	waiting map[uint64]chan error
}

func newAudioBridge(surface ui.Surface, timeout time.Duration) *audioBridge {
	return &audioBridge{
		surface: surface,
		timeout: timeout,
		waiting: make(map[uint64]chan error),
	}
}

// Play loads url into the audio element and waits for the page's answer
func (b *audioBridge) Play(ctx context.Context, url string) error {
	return b.request(ctx, ui.Patch{Kind: ui.PatchPlay, Target: ui.AudioPlayer, Value: url})
}

// Resume restarts the loaded source and waits for the page's answer
func (b *audioBridge) Resume(ctx context.Context) error {
	return b.request(ctx, ui.Patch{Kind: ui.PatchResume, Target: ui.AudioPlayer})
}

// Pause stops playback; there is nothing to confirm
func (b *audioBridge) Pause(context.Context) error {
	b.mu.Lock()
	b.supersedeLocked()
	b.mu.Unlock()
	b.surface.Apply(ui.Patch{Kind: ui.PatchPause, Target: ui.AudioPlayer})
	return nil
}

func (b *audioBridge) request(ctx context.Context, p ui.Patch) error {
	b.mu.Lock()
	b.supersedeLocked()
	b.next++
	token := b.next
	answer := make(chan error, 1)
	b.waiting[token] = answer
	b.mu.Unlock()

	p.Token = token
	b.surface.Apply(p)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case err := <-answer:
		return err
	case <-timer.C:
		b.forget(token)
		return ErrConfirmTimeout
	case <-ctx.Done():
		b.forget(token)
		return ctx.Err()
	}
}

// Ack delivers the page's answer for token. It reports whether the token
// was still awaited.
func (b *audioBridge) Ack(token uint64, playing bool, reason string) bool {
	b.mu.Lock()
	answer, ok := b.waiting[token]
	delete(b.waiting, token)
	b.mu.Unlock()
	if !ok {
		return false
	}

	if playing {
		answer <- nil
	} else {
		if reason == "" {
			reason = "refused by the audio element"
		}
		answer <- errors.New(reason)
	}
	return true
}

// close releases every waiter
func (b *audioBridge) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supersedeLocked()
}

// supersedeLocked fails every outstanding request (caller holds mu)
func (b *audioBridge) supersedeLocked() {
	for token, answer := range b.waiting {
		answer <- player.ErrSuperseded
		delete(b.waiting, token)
	}
}

func (b *audioBridge) forget(token uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiting, token)
}
