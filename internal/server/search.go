package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opencommune/commune/internal/config"
	"github.com/opencommune/commune/internal/search"
)

// searchSessions tracks one live search synchronizer per user. The
// session is created on first use and torn down when the user's result
// stream disconnects.
type searchSessions struct {
	mu      sync.Mutex
	byUser  map[snowflake.ID]*search.Synchronizer
	onStale func()
}

func newSearchSessions(onStale func()) *searchSessions {
	return &searchSessions{
		byUser:  make(map[snowflake.ID]*search.Synchronizer),
		onStale: onStale,
	}
}

func (s *searchSessions) get(userID snowflake.ID, searcher *search.Searcher, tuning *config.TuningHolder) *search.Synchronizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byUser[userID]; ok {
		return session
	}
	// The session outlives the request that created it; the stream
	// handler tears it down on disconnect.
	session := search.NewSynchronizer(context.Background(), searcher, tuning)
	if s.onStale != nil {
		session.OnStaleDiscard(s.onStale)
	}
	s.byUser[userID] = session
	return session
}

func (s *searchSessions) drop(userID snowflake.ID) {
	s.mu.Lock()
	session, ok := s.byUser[userID]
	if ok {
		delete(s.byUser, userID)
	}
	s.mu.Unlock()
	if ok {
		session.Close()
	}
}

type setQueryRequest struct {
	Query string `json:"query"`
}

// SearchRateLimit throttles direct search requests per user.
func (s *Server) SearchRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, _ := s.searchLimiter.Allow(c.Request.Context(), userID.String())
		if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// SearchDirectory runs one synchronous directory search.
func (s *Server) SearchDirectory(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < search.MinQueryLength {
		c.JSON(http.StatusOK, gin.H{"query": query, "results": []search.Result{}})
		return
	}

	s.metrics.RecordSearchQuery()
	results := s.searcher.Search(c.Request.Context(), query)
	if results == nil {
		results = []search.Result{}
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

// SetSearchQuery feeds a keystroke update into the user's live search
// session and returns the session's current snapshot. Results for the
// new query land on the stream once the debounce window fires.
func (s *Server) SetSearchQuery(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req setQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session := s.searchSessions.get(userID, s.searcher, s.tuning)
	session.SetQuery(req.Query)

	c.JSON(http.StatusOK, session.Snapshot())
}

// StreamSearchResults pushes live search snapshots over SSE as results
// land for the user's session.
func (s *Server) StreamSearchResults(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	session := s.searchSessions.get(userID, s.searcher, s.tuning)
	defer s.searchSessions.drop(userID)

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	// Send the current state first so a reconnecting client catches up.
	if err := writeSearchSnapshot(writer, session.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-session.Updates():
			if err := writeSearchSnapshot(writer, snap); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSearchSnapshot(w io.Writer, snap search.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
