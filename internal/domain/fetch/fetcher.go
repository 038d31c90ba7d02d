package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/danwiki/internal/providers/http/client"
	"github.com/GriffinCanCode/danwiki/internal/providers/scraper"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const eventBuffer = 64

// Config wires a Fetcher to its collaborators.
type Config struct {
	Store       *tags.Store
	Index       *suggest.Index
	Pages       PageGetter
	Credentials CredentialSource // optional
	Site        string
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
	Tracer      *tracing.Tracer // optional
}

// Fetcher resolves tags from the cache or the wiki site. At most one network
// fetch runs at a time; results arrive on Events.
type Fetcher struct {
	store      *tags.Store
	index      *suggest.Index
	suggester  *suggest.Suggester
	pages      PageGetter
	creds      CredentialSource
	normalizer *scraper.Normalizer
	log        *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer

	inflight *semaphore.Weighted
	// active counts held slots; it drops only after the slot is released
	active atomic.Int32
	events chan Event

	siteMu sync.RWMutex
	site   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a fetcher. The site defaults to DefaultSite.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Store == nil || cfg.Index == nil || cfg.Pages == nil {
		return nil, errors.New("fetch: store, index and pages are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		store:      cfg.Store,
		index:      cfg.Index,
		suggester:  suggest.NewSuggester(cfg.Store, cfg.Index),
		pages:      cfg.Pages,
		creds:      cfg.Credentials,
		normalizer: scraper.NewNormalizer(),
		log:        cfg.Logger.Named("fetch"),
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		inflight:   semaphore.NewWeighted(1),
		events:     make(chan Event, eventBuffer),
		site:       DefaultSite,
		ctx:        ctx,
		cancel:     cancel,
	}

	if cfg.Site != "" {
		if err := f.SetSite(cfg.Site); err != nil {
			cancel()
			return nil, err
		}
	}
	return f, nil
}

// Events delivers fetch progress. It is closed by Close.
func (f *Fetcher) Events() <-chan Event {
	return f.events
}

// Site returns the current base URL.
func (f *Fetcher) Site() string {
	f.siteMu.RLock()
	defer f.siteMu.RUnlock()
	return f.site
}

// SetSite switches the wiki site. raw may be a shortcut name from Sites or
// an absolute http(s) URL; a trailing slash is dropped.
func (f *Fetcher) SetSite(raw string) error {
	base := strings.TrimSpace(raw)
	if known, ok := Sites[strings.ToLower(base)]; ok {
		base = known
	}

	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSite, raw)
	}
	base = strings.TrimRight(base, "/")

	f.siteMu.Lock()
	f.site = base
	f.siteMu.Unlock()

	f.log.Info("site changed", zap.String("site", base))
	return nil
}

// PageURL returns the wiki page address for tag on the current site.
func (f *Fetcher) PageURL(tag string) string {
	return suggest.PageURL(f.Site(), tag)
}

// Suggest returns a best-effort alternate for tag on the current site.
func (f *Fetcher) Suggest(tag string) suggest.Suggestion {
	s := f.suggester.Suggest(f.Site(), tag)
	f.metrics.RecordSuggestion(s.Source)
	return s
}

// Fetch resolves tag. A cached record is returned immediately and also
// announced on Events. Otherwise the tag is validated and a background fetch
// is started; its progress and outcome arrive on Events under the returned ID.
// Fetch never blocks on the network.
func (f *Fetcher) Fetch(ctx context.Context, tag string) (Request, error) {
	tag = tags.NormalizeTag(tag)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Request{}, ErrClosed
	}

	id := uuid.NewString()
	req := Request{ID: id, Tag: tag}

	if tag != "" {
		if rec, err := f.store.Get(tag); err == nil {
			req.Cached, req.Record = true, &rec
			f.metrics.RecordFetch("cached")
			f.offer(Event{ID: id, Tag: rec.Tag, Status: StatusSuccess, State: StateCached, Record: &rec})
			return req, nil
		}
	}

	if !ValidTag(tag) {
		f.metrics.RecordFetch("invalid")
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	if !f.inflight.TryAcquire(1) {
		f.metrics.RecordFetch("busy")
		return Request{}, ErrBusy
	}

	f.active.Add(1)
	f.metrics.RecordFetch("started")
	f.wg.Add(1)
	go f.run(tracing.WithTrace(f.ctx, tracing.GetTraceID(ctx)), id, tag, f.Site())
	return req, nil
}

// Busy reports whether a background fetch is running. It never touches the
// fetch slot, so polling it cannot make a concurrent Fetch fail with ErrBusy.
func (f *Fetcher) Busy() bool {
	return f.active.Load() > 0
}

// Close stops accepting fetches, waits for the running one, and closes Events.
func (f *Fetcher) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.cancel()
	f.wg.Wait()
	close(f.events)
}

// run drives one fetch: request, optional credential refresh and retry,
// extraction, persist. Steps never overlap.
func (f *Fetcher) run(ctx context.Context, id, tag, site string) {
	defer f.wg.Done()
	defer func() {
		f.inflight.Release(1)
		f.active.Add(-1)
	}()

	span, ctx := f.tracer.StartSpan(ctx, "fetch")
	span.SetTag("tag", tag)
	start := time.Now()
	defer func() {
		f.metrics.ObserveFetch(time.Since(start))
		span.Finish()
		f.tracer.Submit(span)
	}()

	log := f.log.With(
		zap.String("id", id),
		zap.String("tag", tag),
		zap.String("trace", tracing.FormatTrace(tracing.GetTraceID(ctx), tracing.GetSpanID(ctx))),
	)
	pageURL := suggest.PageURL(site, tag)

	f.emit(Event{ID: id, Tag: tag, Status: StatusInfo, State: StateFetching, Message: "fetching " + pageURL})

	resp, err := f.pages.Get(ctx, pageURL)
	if siteTripped(err) {
		// a retry would be refused without reaching the site
		log.Warn("site circuit open, skipping credential refresh", zap.Error(err))
	} else if !resp.OK() && f.creds != nil && ctx.Err() == nil {
		log.Info("page unavailable, refreshing credentials", zap.Error(err), zap.Int("status", status(resp)))
		f.emit(Event{ID: id, Tag: tag, Status: StatusInfo, State: StateNeedCredentials, Message: "acquiring browser credentials, please wait..."})

		hspan, hctx := f.tracer.StartSpan(ctx, "harvest")
		creds, herr := f.creds.Harvest(hctx, pageURL)
		hspan.SetError(herr)
		hspan.Finish()
		f.tracer.Submit(hspan)
		switch {
		case herr != nil:
			log.Warn("credential harvest failed", zap.Error(herr))
		case !creds.Valid():
			log.Warn("credential harvest returned incomplete credentials")
		default:
			f.pages.SetCredentials(creds.UserAgent, creds.Cookies)
			resp, err = f.pages.Get(ctx, pageURL)
		}
	}

	if !resp.OK() {
		s := f.suggester.Suggest(site, tag)
		f.metrics.RecordSuggestion(s.Source)
		log.Warn("tag fetch failed", zap.Error(err), zap.Int("status", status(resp)), zap.String("suggestion", s.URL))
		span.SetTag("state", string(StateNotFound))
		f.emit(Event{
			ID:         id,
			Tag:        tag,
			Status:     StatusError,
			State:      StateNotFound,
			Message:    fmt.Sprintf("unable to fetch tag info: %s\nHTTP status: %s", tag, statusText(resp)),
			Suggestion: &s,
		})
		return
	}

	page, err := f.normalizer.ParseWikiPage(resp.Body)
	if err != nil {
		log.Warn("wiki body missing", zap.Error(err))
		span.SetTag("state", string(StateNotFound))
		f.emit(Event{ID: id, Tag: tag, Status: StatusError, State: StateNotFound, Message: "tag info not found: " + tag})
		return
	}

	rec := tags.Record{
		Tag:      tag,
		Synonyms: tags.JoinSynonyms(page.Synonyms),
		Meaning:  page.Meaning,
		Sections: page.Sections,
		Posts:    page.Posts,
	}

	msg := ""
	if err := f.store.Upsert(rec); err != nil {
		log.Error("record kept in memory but not persisted", zap.Error(err))
		msg = "saved for this session only: " + err.Error()
	}

	span.SetTag("state", string(StateSuccess))
	log.Info("tag fetched", zap.Int("sections", len(rec.Sections)), zap.Int("posts", rec.Posts))
	f.emit(Event{ID: id, Tag: tag, Status: StatusSuccess, State: StateSuccess, Message: msg, Record: &rec})
}

func siteTripped(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests)
}

// emit hands an event to the front end, giving up only on shutdown.
func (f *Fetcher) emit(ev Event) {
	ev.Time = time.Now()
	f.metrics.RecordState(string(ev.State))
	select {
	case f.events <- ev:
	case <-f.ctx.Done():
	}
}

// offer hands an event over without waiting. Used on the caller's goroutine.
func (f *Fetcher) offer(ev Event) {
	ev.Time = time.Now()
	f.metrics.RecordState(string(ev.State))
	select {
	case f.events <- ev:
	default:
		f.log.Debug("event queue full, dropping cached notice", zap.String("tag", ev.Tag))
	}
}

func status(resp *client.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func statusText(resp *client.Response) string {
	if resp == nil {
		return "no response"
	}
	return strconv.Itoa(resp.StatusCode)
}
