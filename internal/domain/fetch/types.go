package fetch

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/providers/browser"
	"github.com/GriffinCanCode/danwiki/internal/providers/http/client"
)

var (
	// ErrInvalidTag is returned for tags outside the allowed character set.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrBusy is returned while another fetch is still running.
	ErrBusy = errors.New("a fetch is already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("fetcher closed")
	// ErrInvalidSite is returned by SetSite for unusable base URLs.
	ErrInvalidSite = errors.New("invalid site url")
)

var validTag = regexp.MustCompile(`^[a-zA-Z0-9_\-.:]+$`)

// ValidTag reports whether tag uses only letters, digits, and _ - . :
func ValidTag(tag string) bool {
	return validTag.MatchString(tag)
}

// Status is the coarse kind of an event.
type Status string

const (
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
	StatusError   Status = "error"
)

// State is a step of a fetch.
type State string

const (
	StateCached          State = "CACHED"
	StateFetching        State = "FETCHING"
	StateNeedCredentials State = "NEED_CREDENTIALS"
	StateSuccess         State = "SUCCESS"
	StateNotFound        State = "NOT_FOUND"
)

// Terminal reports whether no further events follow this state.
func (s State) Terminal() bool {
	switch s {
	case StateCached, StateSuccess, StateNotFound:
		return true
	}
	return false
}

// Event is one step of a fetch delivered to the front end.
type Event struct {
	ID         string              `json:"id"`
	Tag        string              `json:"tag"`
	Status     Status              `json:"status"`
	State      State               `json:"state"`
	Message    string              `json:"message,omitempty"`
	Record     *tags.Record        `json:"record,omitempty"`
	Suggestion *suggest.Suggestion `json:"suggestion,omitempty"`
	Time       time.Time           `json:"time"`
}

// Request describes how a Fetch call was handled.
type Request struct {
	ID     string       `json:"id"`
	Tag    string       `json:"tag"`
	Cached bool         `json:"cached"`
	Record *tags.Record `json:"record,omitempty"`
}

// PageGetter fetches wiki pages and accepts replacement credentials.
type PageGetter interface {
	Get(ctx context.Context, url string) (*client.Response, error)
	SetCredentials(userAgent string, cookies map[string]string)
}

// CredentialSource obtains credentials from a real browser.
type CredentialSource interface {
	Harvest(ctx context.Context, pageURL string) (browser.Credentials, error)
}

// Known site shortcuts accepted by SetSite.
var Sites = map[string]string{
	"safebooru": "https://safebooru.donmai.us",
	"danbooru":  "https://danbooru.donmai.us",
}

// DefaultSite is used when no site is configured.
const DefaultSite = "https://safebooru.donmai.us"
