package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"agency/framework"
	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/docstore"
	"agency/internal/web/appcore"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedReadLimit  = 4096
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
}

// feedRequest switches the category the feed is bound to.
type feedRequest struct {
	Category string `json:"category"`
}

type feedTalent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	ProfileImage string `json:"profileImage"`
	Rate         string `json:"rate,omitempty"`
}

type feedError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type feedMessage struct {
	Category  string       `json:"category"`
	Talents   []feedTalent `json:"talents"`
	IsLoading bool         `json:"isLoading"`
	Error     *feedError   `json:"error,omitempty"`
}

func newFeedMessage(category string, state binding.State[[]agency.Talent]) feedMessage {
	msg := feedMessage{
		Category:  category,
		Talents:   make([]feedTalent, 0, len(state.Data)),
		IsLoading: state.IsLoading,
	}
	for _, talent := range state.Data {
		msg.Talents = append(msg.Talents, feedTalent{
			ID:           talent.ID,
			Name:         talent.Name,
			Category:     string(talent.Category),
			ProfileImage: appcore.TalentImage(talent),
			Rate:         appcore.FormatRate(talent),
		})
	}
	if state.Err != nil {
		msg.Error = &feedError{Kind: string(state.Err.Kind), Message: state.Err.Message}
	}
	return msg
}

// serveTalentFeed streams the talent directory as JSON over a websocket.
// Each {"category": ...} message from the client rebinds the subscription.
func serveTalentFeed(
	runtime framework.RuntimeContext[*appcore.Context],
	w http.ResponseWriter,
	r *http.Request,
	_ framework.EmptyParams,
) error {
	appCtx := runtime.AppContext()
	logger := appCtx.Logger()

	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("talent feed upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	g, ctx := errgroup.WithContext(r.Context())
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	categories := newLatest[string]()
	categories.put(normalizeFeedCategory(r.URL.Query().Get("category")))

	g.Go(func() error {
		conn.SetReadLimit(feedReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			var req feedRequest
			if err := conn.ReadJSON(&req); err != nil {
				return err
			}
			categories.put(normalizeFeedCategory(req.Category))
		}
	})

	g.Go(func() error {
		updates := newLatest[binding.State[[]agency.Talent]]()
		hook := binding.NewCollection[agency.Talent](ctx, appCtx.Store(), appCtx.Binding(), updates.put)
		defer hook.Close()

		var memo binding.Memo[*docstore.Query]
		category := ""
		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-categories.ready:
				category = categories.take()
				hook.Bind(binding.MemoizeQuery(&memo, func() *docstore.Query {
					return agency.TalentDirectory(category)
				}, category))
			case <-updates.ready:
				_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := conn.WriteJSON(newFeedMessage(category, updates.take())); err != nil {
					return err
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !isFeedClosed(err) {
		logger.Debug("talent feed closed", zap.Error(err))
	}
	return nil
}

func normalizeFeedCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return "all"
	}
	if category, ok := agency.NormalizeCategory(raw); ok {
		return string(category)
	}
	return raw
}

func isFeedClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, context.Canceled)
}
