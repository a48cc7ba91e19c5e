package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"melodeck/internal/models"
	"melodeck/internal/monitoring"
	"melodeck/internal/player"
	"melodeck/internal/session"
)

// keepAlive is the interval of SSE pings on an idle stream
const keepAlive = 15 * time.Second

const sessionKey = "session"

// LiveHandler connects a page to its session: an SSE stream of patches
// out, form posts of user events in
type LiveHandler struct {
	sessions *session.Manager
}

// NewLiveHandler creates a live session handler
func NewLiveHandler(sessions *session.Manager) *LiveHandler {
	return &LiveHandler{sessions: sessions}
}

// LoadSession resolves :sid or aborts with 404
func (h *LiveHandler) LoadSession(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("sid"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// Events handles GET /live/:sid/events. The first connection starts the
// page's initial work; the stream ends with the session or the client.
func (h *LiveHandler) Events(c *gin.Context) {
	s := current(c)
	s.Start()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case p := <-s.Events():
			c.SSEvent("patch", p)
			return true
		case <-ticker.C:
			s.Touch(time.Now())
			c.SSEvent("ping", "")
			return true
		case <-s.Done():
			c.SSEvent("end", "")
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// searchEvent applies a search event in client order. The page numbers its
// search posts with form field seq; a post older than one already applied
// is dropped.
func searchEvent(c *gin.Context, apply func(s *session.Session)) {
	var seq uint64
	if raw := c.PostForm("seq"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seq"})
			return
		}
		seq = n
	}
	s := current(c)
	s.Search.InOrder(seq, func() { apply(s) })
	c.Status(http.StatusNoContent)
}

// SearchInput handles POST /live/:sid/search/input with form field q
func (h *LiveHandler) SearchInput(c *gin.Context) {
	q := c.PostForm("q")
	searchEvent(c, func(s *session.Session) { s.Search.Input(q) })
}

// SearchFilter handles POST /live/:sid/search/filter with form field filter
func (h *LiveHandler) SearchFilter(c *gin.Context) {
	filter, ok := models.ParseFilter(c.PostForm("filter"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown filter"})
		return
	}
	searchEvent(c, func(s *session.Session) { s.Search.SelectFilter(filter) })
}

// SearchClear handles POST /live/:sid/search/clear
func (h *LiveHandler) SearchClear(c *gin.Context) {
	searchEvent(c, func(s *session.Session) { s.Search.Clear() })
}

// SearchCategory handles POST /live/:sid/search/category with form field label
func (h *LiveHandler) SearchCategory(c *gin.Context) {
	label := c.PostForm("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category label is required"})
		return
	}
	searchEvent(c, func(s *session.Session) { s.Search.SelectCategory(label) })
}

// Play handles POST /live/:sid/play/:id. Playback runs in the background
// because it completes only when the page acknowledges the audio element.
func (h *LiveHandler) Play(c *gin.Context) {
	s := current(c)
	id := c.Param("id")
	monitoring.AddBreadcrumb(s.Context(), "player", "play "+id)

	go func() {
		reportPlayback(s, "play", s.Player.PlaySong(s.Context(), id))
	}()
	c.Status(http.StatusAccepted)
}

// Toggle handles POST /live/:sid/toggle
func (h *LiveHandler) Toggle(c *gin.Context) {
	s := current(c)
	go func() {
		reportPlayback(s, "toggle", s.Player.Toggle(s.Context()))
	}()
	c.Status(http.StatusAccepted)
}

// reportPlayback logs failures the user was not already alerted about
func reportPlayback(s *session.Session, action string, err error) {
	switch {
	case err == nil,
		errors.Is(err, player.ErrSuperseded),
		errors.Is(err, player.ErrNoPlayableURL),
		errors.Is(err, player.ErrPlaybackRejected):
		return
	case s.Context().Err() != nil:
		return
	}
	slog.Warn("Playback failed", "session_id", s.ID, "action", action, "error", err)
	monitoring.CaptureException(s.Context(), err)
}

// playbackAck is the page's answer to a play or resume patch
type playbackAck struct {
	Token  string `form:"token" binding:"required"`
	State  string `form:"state" binding:"required,oneof=playing rejected"`
	Reason string `form:"reason"`
}

// Playback handles POST /live/:sid/playback
func (h *LiveHandler) Playback(c *gin.Context) {
	var ack playbackAck
	if err := c.ShouldBind(&ack); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid acknowledgement", "details": err.Error()})
		return
	}
	token, err := strconv.ParseUint(ack.Token, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
		return
	}

	accepted := current(c).Ack(token, ack.State == "playing", ack.Reason)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// Close handles POST /live/:sid/close, sent when the page unloads
func (h *LiveHandler) Close(c *gin.Context) {
	h.sessions.Remove(current(c).ID)
	c.Status(http.StatusNoContent)
}
