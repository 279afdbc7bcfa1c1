package web

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testSite) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)
	return srv
}

// readStreamUntil reads SSE lines until every want appears or the context
// expires, and returns what it saw.
func readStreamUntil(t *testing.T, ctx context.Context, srv *httptest.Server, path string, cookie *http.Cookie, want ...string) string {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Datastar-Request", "true")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var seen strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		seen.WriteString(scanner.Text())
		seen.WriteByte('\n')

		done := true
		for _, w := range want {
			if !strings.Contains(seen.String(), w) {
				done = false
				break
			}
		}
		if done {
			return seen.String()
		}
	}
	t.Fatalf("stream ended before %q appeared; got:\n%s", want, seen.String())
	return ""
}

func TestDirectoryLiveStreamPatchesGrid(t *testing.T) {
	site := newTestSite(t, nil)
	srv := site.server(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	signals := url.QueryEscape(`{"category":"model","q":""}`)
	body := readStreamUntil(t, ctx, srv, "/talent/live?datastar="+signals, nil,
		"event: datastar-patch-elements",
		"data: selector #talent-grid",
		"Aisha Khan",
	)
	assert.NotContains(t, body, "David Ochieng")
}

func TestDirectoryLiveStreamFollowsWrites(t *testing.T) {
	site := newTestSite(t, nil)
	srv := site.server(t)
	admin, _ := site.signUp(t, "admin@agency.test", true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	approved := make(chan struct{})
	go func() {
		defer close(approved)
		time.Sleep(100 * time.Millisecond)
		site.post("/admin/talent/samuel-maina/approval", url.Values{"approved": {"true"}}, admin)
	}()

	signals := url.QueryEscape(`{"category":"content-creator"}`)
	readStreamUntil(t, ctx, srv, "/talent/live?datastar="+signals, nil, "Samuel Maina")
	<-approved
}

func TestDashboardLiveStreamRequiresAdmin(t *testing.T) {
	site := newTestSite(t, nil)
	srv := site.server(t)
	admin, _ := site.signUp(t, "admin@agency.test", true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	readStreamUntil(t, ctx, srv, "/admin/dashboard/live", admin,
		"data: selector #dashboard-stats",
		"Pending review",
	)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := client.Get(srv.URL + "/admin/dashboard/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestTalentFeedRebindsOnCategory(t *testing.T) {
	site := newTestSite(t, nil)
	srv := site.server(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/talents?category=Artist"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFeedUntil(t, conn, "artist")
	require.Len(t, first.Talents, 1)
	assert.Equal(t, "David Ochieng", first.Talents[0].Name)

	require.NoError(t, conn.WriteJSON(feedRequest{Category: "model"}))
	second := readFeedUntil(t, conn, "model")
	require.Len(t, second.Talents, 1)
	assert.Equal(t, "Aisha Khan", second.Talents[0].Name)

	require.NoError(t, conn.WriteJSON(feedRequest{Category: "all"}))
	all := readFeedUntil(t, conn, "all")
	assert.Len(t, all.Talents, 3)
}

func readFeedUntil(t *testing.T, conn *websocket.Conn, category string) feedMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg feedMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Nil(t, msg.Error)
		if msg.Category == category && !msg.IsLoading {
			return msg
		}
	}
}

func TestNormalizeFeedCategory(t *testing.T) {
	cases := map[string]string{
		"":                "all",
		" ALL ":           "all",
		"Content Creator": "content-creator",
		"model":           "model",
		"astronaut":       "astronaut",
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeFeedCategory(raw), raw)
	}
}

func TestLatestKeepsNewestValue(t *testing.T) {
	box := newLatest[int]()
	box.put(1)
	box.put(2)

	select {
	case <-box.ready:
	default:
		t.Fatal("expected ready signal")
	}
	assert.Equal(t, 2, box.take())

	select {
	case <-box.ready:
		t.Fatal("expected a single ready signal for coalesced puts")
	default:
	}
}
