package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/danwiki/internal/providers/browser"
	"github.com/GriffinCanCode/danwiki/internal/providers/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const wikiHTML = `<html><body>
<div id="subnav-posts">Posts (1,234)</div>
<ul><li class="wiki-other-name">ネコミミ</li><li class="wiki-other-name">nekomimi</li></ul>
<div id="wiki-page-body">
<p>Cat ears on a character.</p>
<h4>See also</h4>
<ul><li>animal ears</li></ul>
</div>
</body></html>`

type fakePages struct {
	mu        sync.Mutex
	responses []*client.Response
	errs      []error
	calls     int
	userAgent string
	cookies   map[string]string
	urls      []string
	block     chan struct{}
}

func (p *fakePages) Get(ctx context.Context, url string) (*client.Response, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	p.urls = append(p.urls, url)

	var resp *client.Response
	var err error
	if i < len(p.responses) {
		resp = p.responses[i]
	}
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return resp, err
}

func (p *fakePages) SetCredentials(userAgent string, cookies map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userAgent, p.cookies = userAgent, cookies
}

func (p *fakePages) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type mockCreds struct {
	mock.Mock
}

func (m *mockCreds) Harvest(ctx context.Context, pageURL string) (browser.Credentials, error) {
	args := m.Called(ctx, pageURL)
	return args.Get(0).(browser.Credentials), args.Error(1)
}

const catEarsURL = DefaultSite + "/wiki_pages/cat_ears"

func newFetcher(t *testing.T, pages *fakePages, creds CredentialSource) (*Fetcher, *tags.Store) {
	t.Helper()
	store := tags.NewStore(filepath.Join(t.TempDir(), "tag_data.json"), logging.NewNop())
	index := suggest.NewIndex()
	store.SetIndexer(index)

	cfg := Config{
		Store:   store,
		Index:   index,
		Pages:   pages,
		Logger:  logging.NewNop(),
		Metrics: monitoring.NewMetrics(),
	}
	if creds != nil {
		cfg.Credentials = creds
	}
	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f, store
}

// collect reads events for id until a terminal state.
func collect(t *testing.T, f *Fetcher, id string) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-f.Events():
			require.True(t, ok, "event stream closed early")
			if ev.ID != id {
				continue
			}
			out = append(out, ev)
			if ev.State.Terminal() {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out waiting for fetch %s, got %v", id, out)
		}
	}
}

func states(events []Event) []State {
	out := make([]State, len(events))
	for i, ev := range events {
		out[i] = ev.State
	}
	return out
}

func TestFetchCachedMakesNoRequests(t *testing.T) {
	pages := &fakePages{}
	f, store := newFetcher(t, pages, nil)
	require.NoError(t, store.Upsert(tags.Record{Tag: "cat_ears", Meaning: "m"}))

	req, err := f.Fetch(context.Background(), " cat ears ")
	require.NoError(t, err)
	assert.True(t, req.Cached)
	require.NotNil(t, req.Record)
	assert.Equal(t, "m", req.Record.Meaning)

	events := collect(t, f, req.ID)
	assert.Equal(t, []State{StateCached}, states(events))
	assert.Equal(t, StatusSuccess, events[0].Status)
	assert.Equal(t, 0, pages.Calls())
}

func TestFetchRejectsInvalidTag(t *testing.T) {
	pages := &fakePages{}
	f, _ := newFetcher(t, pages, nil)

	for _, tag := range []string{"", "bad/tag", "what?", "<script>"} {
		_, err := f.Fetch(context.Background(), tag)
		assert.ErrorIs(t, err, ErrInvalidTag, tag)
	}
	assert.Equal(t, 0, pages.Calls())
}

func TestValidTag(t *testing.T) {
	assert.True(t, ValidTag("cat_ears"))
	assert.True(t, ValidTag("re:zero"))
	assert.False(t, ValidTag("k-on!"))
	assert.True(t, ValidTag("v1.0"))
	assert.False(t, ValidTag(""))
	assert.False(t, ValidTag("a b"))
}

func TestFetchSuccess(t *testing.T) {
	pages := &fakePages{responses: []*client.Response{{StatusCode: 200, Body: []byte(wikiHTML)}}}
	f, store := newFetcher(t, pages, nil)

	req, err := f.Fetch(context.Background(), "Cat Ears")
	require.NoError(t, err)
	assert.False(t, req.Cached)
	assert.Equal(t, "Cat_Ears", req.Tag)

	events := collect(t, f, req.ID)
	assert.Equal(t, []State{StateFetching, StateSuccess}, states(events))

	rec := events[1].Record
	require.NotNil(t, rec)
	assert.Equal(t, "Cat_Ears", rec.Tag)
	assert.Equal(t, "ネコミミ, nekomimi", rec.Synonyms)
	assert.Equal(t, "Cat ears on a character.", rec.Meaning)
	assert.Equal(t, "animal ears", rec.Sections["See also"])
	assert.Equal(t, 1234, rec.Posts)

	assert.True(t, store.Contains("Cat_Ears"))
	assert.Equal(t, []string{DefaultSite + "/wiki_pages/Cat_Ears"}, pages.urls)

	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	// A second fetch is served from the store.
	again, err := f.Fetch(context.Background(), "Cat_Ears")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, pages.Calls())
}

func TestFetchRefreshesCredentialsOnce(t *testing.T) {
	pages := &fakePages{responses: []*client.Response{
		{StatusCode: 403},
		{StatusCode: 200, Body: []byte(wikiHTML)},
	}}
	creds := &mockCreds{}
	creds.On("Harvest", mock.Anything, catEarsURL).Return(browser.Credentials{
		UserAgent: "Mozilla/5.0 Real",
		Cookies:   map[string]string{"cf_clearance": "abc"},
	}, nil).Once()
	f, _ := newFetcher(t, pages, creds)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	assert.Equal(t, []State{StateFetching, StateNeedCredentials, StateSuccess}, states(events))
	creds.AssertExpectations(t)
	assert.Equal(t, 2, pages.Calls())
	assert.Equal(t, "Mozilla/5.0 Real", pages.userAgent)
	assert.Equal(t, "abc", pages.cookies["cf_clearance"])
}

func TestFetchNotFoundWithSuggestion(t *testing.T) {
	pages := &fakePages{responses: []*client.Response{{StatusCode: 403}}}
	creds := &mockCreds{}
	creds.On("Harvest", mock.Anything, catEarsURL).Return(browser.Credentials{}, browser.ErrNoBrowser).Once()
	f, store := newFetcher(t, pages, creds)
	require.NoError(t, store.Upsert(tags.Record{Tag: "cat_ear", Meaning: "x"}))

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	last := events[len(events)-1]
	assert.Equal(t, StateNotFound, last.State)
	assert.Equal(t, StatusError, last.Status)
	assert.Equal(t, "unable to fetch tag info: cat_ears\nHTTP status: 403", last.Message)
	require.NotNil(t, last.Suggestion)
	assert.Equal(t, "cat_ear", last.Suggestion.Tag)
	assert.Equal(t, suggest.SourceStore, last.Suggestion.Source)
	assert.Equal(t, 1, pages.Calls(), "no retry without credentials")
	assert.False(t, store.Contains("cat_ears"))
	creds.AssertExpectations(t)
}

func TestFetchIncompleteCredentialsSkipRetry(t *testing.T) {
	pages := &fakePages{responses: []*client.Response{{StatusCode: 503}}}
	creds := &mockCreds{}
	creds.On("Harvest", mock.Anything, catEarsURL).Return(browser.Credentials{UserAgent: "ua"}, nil).Once()
	f, _ := newFetcher(t, pages, creds)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	assert.Equal(t, StateNotFound, events[len(events)-1].State)
	assert.Equal(t, 1, pages.Calls())
	assert.Empty(t, pages.userAgent)
}

func TestFetchSkipsHarvestWhileCircuitOpen(t *testing.T) {
	pages := &fakePages{errs: []error{fmt.Errorf("%w: %w", client.ErrNoResponse, resilience.ErrCircuitOpen)}}
	creds := &mockCreds{}
	f, _ := newFetcher(t, pages, creds)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	assert.Equal(t, []State{StateFetching, StateNotFound}, states(events))
	assert.Equal(t, 1, pages.Calls())
	creds.AssertNotCalled(t, "Harvest", mock.Anything, mock.Anything)
}

func TestFetchNoResponse(t *testing.T) {
	pages := &fakePages{errs: []error{client.ErrNoResponse}}
	f, _ := newFetcher(t, pages, nil)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	assert.Equal(t, []State{StateFetching, StateNotFound}, states(events))
	last := events[1]
	assert.Equal(t, "unable to fetch tag info: cat_ears\nHTTP status: no response", last.Message)
	require.NotNil(t, last.Suggestion)
	assert.NotEmpty(t, last.Suggestion.URL)
}

func TestFetchMissingWikiBody(t *testing.T) {
	pages := &fakePages{responses: []*client.Response{{StatusCode: 200, Body: []byte("<html><body><p>nothing</p></body></html>")}}}
	f, store := newFetcher(t, pages, nil)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	events := collect(t, f, req.ID)
	last := events[len(events)-1]
	assert.Equal(t, StateNotFound, last.State)
	assert.Equal(t, "tag info not found: cat_ears", last.Message)
	assert.Nil(t, last.Suggestion)
	assert.Equal(t, 0, store.Len())
}

func TestFetchBusy(t *testing.T) {
	pages := &fakePages{
		block:     make(chan struct{}),
		responses: []*client.Response{{StatusCode: 200, Body: []byte(wikiHTML)}},
	}
	f, _ := newFetcher(t, pages, nil)

	req, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)
	assert.True(t, f.Busy())

	_, err = f.Fetch(context.Background(), "dog_ears")
	assert.ErrorIs(t, err, ErrBusy)

	close(pages.block)
	events := collect(t, f, req.ID)
	assert.Equal(t, StateSuccess, events[len(events)-1].State)

	assert.Eventually(t, func() bool { return !f.Busy() }, time.Second, 5*time.Millisecond)
}

func TestBusyPollingNeverBlocksFetch(t *testing.T) {
	const rounds = 10
	pages := &fakePages{}
	for i := 0; i < rounds; i++ {
		pages.responses = append(pages.responses, &client.Response{StatusCode: 200, Body: []byte(wikiHTML)})
	}
	f, store := newFetcher(t, pages, nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				f.Busy()
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for i := 0; i < rounds; i++ {
		require.Eventually(t, func() bool { return !f.Busy() }, time.Second, time.Millisecond)
		req, err := f.Fetch(context.Background(), fmt.Sprintf("tag_%d", i))
		require.NoError(t, err)
		events := collect(t, f, req.ID)
		require.Equal(t, StateSuccess, events[len(events)-1].State)
	}
	assert.Equal(t, rounds, store.Len())
}

func TestCloseCancelsRunningFetch(t *testing.T) {
	pages := &fakePages{block: make(chan struct{})}
	f, _ := newFetcher(t, pages, nil)

	_, err := f.Fetch(context.Background(), "cat_ears")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.Close()
		close(done)
	}()
	// Drain so a pending send cannot hold Close up.
	for range f.Events() {
	}
	<-done

	_, err = f.Fetch(context.Background(), "cat_ears")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSetSite(t *testing.T) {
	f, _ := newFetcher(t, &fakePages{}, nil)
	assert.Equal(t, DefaultSite, f.Site())

	require.NoError(t, f.SetSite("danbooru"))
	assert.Equal(t, "https://danbooru.donmai.us", f.Site())

	require.NoError(t, f.SetSite("http://localhost:3000/"))
	assert.Equal(t, "http://localhost:3000", f.Site())
	assert.Equal(t, "http://localhost:3000/wiki_pages/cat_ears", f.PageURL("cat_ears"))

	for _, bad := range []string{"", "ftp://x", "not a url", "/relative"} {
		assert.True(t, errors.Is(f.SetSite(bad), ErrInvalidSite), bad)
	}
	assert.Equal(t, "http://localhost:3000", f.Site())
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	store := tags.NewStore(filepath.Join(t.TempDir(), "x.json"), logging.NewNop())
	_, err = New(Config{Store: store, Index: suggest.NewIndex(), Pages: &fakePages{}, Site: "gopher://x"})
	assert.ErrorIs(t, err, ErrInvalidSite)
}

func TestFetchRecordsSpan(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := tracing.New("test", &logging.Logger{Logger: zap.New(core)})
	fetchCore, fetchLogs := observer.New(zap.InfoLevel)

	pages := &fakePages{responses: []*client.Response{{StatusCode: 200, Body: []byte(wikiHTML)}}}
	store := tags.NewStore(filepath.Join(t.TempDir(), "tag_data.json"), logging.NewNop())
	f, err := New(Config{
		Store:  store,
		Index:  suggest.NewIndex(),
		Pages:  pages,
		Tracer: tracer,
		Logger: &logging.Logger{Logger: zap.New(fetchCore)},
	})
	require.NoError(t, err)

	ctx := tracing.WithTrace(context.Background(), "trace-1")
	req, err := f.Fetch(ctx, "cat_ears")
	require.NoError(t, err)
	collect(t, f, req.ID)

	f.Close()
	tracer.Close()

	spans := logs.FilterMessage("span completed").All()
	require.Len(t, spans, 1)
	fields := spans[0].ContextMap()
	assert.Equal(t, "fetch", fields["operation"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, string(StateSuccess), fields["tag.state"])

	fetched := fetchLogs.FilterMessage("tag fetched").All()
	require.Len(t, fetched, 1)
	trace := fetched[0].ContextMap()["trace"]
	assert.Equal(t, fmt.Sprintf("[trace:trace-1 span:%s]", fields["span_id"]), trace)
}
