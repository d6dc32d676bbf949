package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/feed"
)

func (s *Server) handleFeedLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Feed.Latest(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// handleFeedStream serves snapshots as server-sent events. The first event
// is sent immediately; later ones follow the feed's timer.
func (s *Server) handleFeedStream(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	ctx := r.Context()

	first, err := s.deps.Feed.Latest(ctx, companyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	updates, cancel, err := s.deps.Feed.Subscribe(companyID)
	if err != nil {
		if errors.Is(err, feed.ErrClosed) {
			Error(w, http.StatusServiceUnavailable, "feed is shutting down")
			return
		}
		s.fail(w, r, err)
		return
	}
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := sendSnapshot(w, first); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := sendSnapshot(w, snap); err != nil {
				s.logger.Debug("feed client gone", zap.String("company_id", companyID), zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func sendSnapshot(w http.ResponseWriter, snap feed.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}
