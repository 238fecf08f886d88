package convo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"sassito/internal/dedup"
	"sassito/internal/intent"
	"sassito/internal/metrics"
	"sassito/internal/repo"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	channel, thread, text string
}

type fakeGateway struct {
	mu        sync.Mutex
	posts     []post
	reactions []string
	postErr   error
	reactErr  error
}

func (g *fakeGateway) PostReply(_ context.Context, channel, threadTS, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.postErr != nil {
		return "", g.postErr
	}
	g.posts = append(g.posts, post{channel: channel, thread: threadTS, text: text})
	return "1700000000.000200", nil
}

func (g *fakeGateway) AddReaction(_ context.Context, _, ts, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reactions = append(g.reactions, name+"@"+ts)
	return g.reactErr
}

type fakeRouter struct {
	mu         sync.Mutex
	matches    bool
	reply      string
	dispatched []string
}

func (r *fakeRouter) Match(string) (intent.Rule, string, bool) {
	return intent.Rule{Label: "stub"}, "", r.matches
}

func (r *fakeRouter) Dispatch(_ context.Context, text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, text)
	return r.reply
}

type fakeLog struct {
	records []repo.MessageRecord
	err     error
}

func (l *fakeLog) InsertMessage(_ context.Context, rec repo.MessageRecord) error {
	l.records = append(l.records, rec)
	return l.err
}

func newTestEngine(router Router, gw *fakeGateway, opts Options) (*Engine, *metrics.Metrics) {
	m := metrics.New("convo_test")
	e := New(router, gw, dedup.NewMemory(100, dedup.DefaultWindow), opts, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return e, m
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Please send stripe info from Fish & Chips",
		CleanText("<@U012ABC> Please send stripe info from Fish &amp; Chips"))
	assert.Equal(t, "hi there", CleanText("<@U1|bot>   hi   <@W2> there"))
	assert.Equal(t, "", CleanText("<@U012ABC>"))
}

func TestHandleMentionRepliesInNewThread(t *testing.T) {
	gw := &fakeGateway{}
	router := &fakeRouter{matches: true, reply: "Stripe Info for Burger Barn"}
	log := &fakeLog{}
	e, m := newTestEngine(router, gw, Options{Log: log})

	err := e.HandleMention(context.Background(), Mention{
		SenderID: "U1", Text: "<@UBOT> Please send stripe info from Burger Barn", Channel: "C1", TS: "100.1",
	})
	require.NoError(t, err)

	require.Len(t, gw.posts, 1)
	assert.Equal(t, post{channel: "C1", thread: "100.1", text: "Stripe Info for Burger Barn"}, gw.posts[0])
	assert.Equal(t, []string{"wave@100.1"}, gw.reactions)
	assert.Equal(t, []string{"Please send stripe info from Burger Barn"}, router.dispatched)

	require.Len(t, log.records, 2)
	assert.Equal(t, repo.DirectionIncoming, log.records[0].Direction)
	assert.Equal(t, repo.DirectionOutgoing, log.records[1].Direction)
	assert.Equal(t, CategoryIntent, log.records[1].Category)
	assert.Equal(t, log.records[0].EventID, log.records[1].EventID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mentions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replies.WithLabelValues(CategoryIntent)))
}

func TestHandleMentionRepliesInExistingThread(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(&fakeRouter{matches: true, reply: "ok"}, gw, Options{})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "x", Channel: "C1", ThreadTS: "90.0", TS: "100.1"}))
	require.Len(t, gw.posts, 1)
	assert.Equal(t, "90.0", gw.posts[0].thread)
}

func TestHandleMentionGreeting(t *testing.T) {
	gw := &fakeGateway{}
	router := &fakeRouter{reply: "menu"}
	e, m := newTestEngine(router, gw, Options{})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U42", Text: "<@UBOT> hey!", Channel: "C1", TS: "1.1"}))
	require.Len(t, gw.posts, 1)
	assert.Equal(t, "<@U42> How can I assist you?", gw.posts[0].text)
	assert.Empty(t, router.dispatched)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replies.WithLabelValues(CategoryGreeting)))
}

func TestHandleMentionGreetingIsWholeWord(t *testing.T) {
	gw := &fakeGateway{}
	router := &fakeRouter{reply: "menu"}
	e, _ := newTestEngine(router, gw, Options{})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "this is something", Channel: "C1", TS: "1.1"}))
	require.Len(t, gw.posts, 1)
	assert.Equal(t, "menu", gw.posts[0].text)
}

func TestHandleMentionIntentBeatsGreeting(t *testing.T) {
	gw := &fakeGateway{}
	router := &fakeRouter{matches: true, reply: "hours"}
	e, _ := newTestEngine(router, gw, Options{})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "hi, Please send opening hours from Hi Five", Channel: "C1", TS: "1.1"}))
	assert.Equal(t, "hours", gw.posts[0].text)
}

func TestHandleMentionReplacesAssistantName(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(&fakeRouter{matches: true, reply: "Assistant here. AssistantX stays."}, gw, Options{DisplayName: "Tier-2 Slack Bot"})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"}))
	assert.Equal(t, "Tier-2 Slack Bot here. AssistantX stays.", gw.posts[0].text)
}

func TestHandleMentionSuppressesDuplicates(t *testing.T) {
	gw := &fakeGateway{}
	e, m := newTestEngine(&fakeRouter{matches: true, reply: "same"}, gw, Options{})
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	e.now = func() time.Time { return clock }

	mention := Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"}
	require.NoError(t, e.HandleMention(context.Background(), mention))
	clock = base.Add(2 * time.Second)
	require.NoError(t, e.HandleMention(context.Background(), mention))
	clock = base.Add(15 * time.Second)
	require.NoError(t, e.HandleMention(context.Background(), mention))

	assert.Len(t, gw.posts, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicatesSuppressed))
}

func TestHandleMentionConcurrentRedeliveryPostsOnce(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(&fakeRouter{matches: true, reply: "same"}, gw, Options{})
	mention := Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.HandleMention(context.Background(), mention)
		}()
	}
	wg.Wait()
	assert.Len(t, gw.posts, 1)
}

func TestHandleMentionSurvivesReactionAndLogFailures(t *testing.T) {
	gw := &fakeGateway{reactErr: errors.New("already_reacted")}
	log := &fakeLog{err: errors.New("db down")}
	e, _ := newTestEngine(&fakeRouter{matches: true, reply: "ok"}, gw, Options{Log: log})

	require.NoError(t, e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"}))
	assert.Len(t, gw.posts, 1)
}

func TestHandleMentionReportsPostFailure(t *testing.T) {
	gw := &fakeGateway{postErr: errors.New("channel_not_found")}
	log := &fakeLog{}
	e, m := newTestEngine(&fakeRouter{matches: true, reply: "ok"}, gw, Options{Log: log})

	err := e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"})
	assert.ErrorContains(t, err, "channel_not_found")
	assert.Len(t, log.records, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("slack_post")))
}

type stalledLog struct {
	mu        sync.Mutex
	deadlines int
}

func (l *stalledLog) InsertMessage(ctx context.Context, _ repo.MessageRecord) error {
	if _, ok := ctx.Deadline(); ok {
		l.mu.Lock()
		l.deadlines++
		l.mu.Unlock()
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleMentionRepliesWhenMessageLogStalls(t *testing.T) {
	gw := &fakeGateway{}
	log := &stalledLog{}
	e, _ := newTestEngine(&fakeRouter{matches: true, reply: "ok"}, gw, Options{Log: log, LogTimeout: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		done <- e.HandleMention(context.Background(), Mention{SenderID: "U1", Text: "x", Channel: "C1", TS: "1.1"})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("HandleMention blocked on the message log")
	}
	assert.Len(t, gw.posts, 1)
	assert.Equal(t, 2, log.deadlines)
}
