package notification

import (
	"context"
	"io"
	stdlog "log"
	"net/url"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/bearwatch/internal/errors"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// Creates a single sender for multiple URLs.
type ShoutrrrProvider struct {
	urls   []string
	types  map[Type]bool
	sender *router.ServiceRouter
}

// NewShoutrrrProvider builds a sender for urls. Empty types means all types.
func NewShoutrrrProvider(urls []string, types []Type, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Category(errors.CategoryConfiguration).
			Component("notification").
			Build()
	}

	sp := &ShoutrrrProvider{
		urls:  slices.Clone(urls),
		types: map[Type]bool{},
	}
	if len(types) == 0 {
		types = []Type{TypeReport, TypeSnapshot}
	}
	for _, t := range types {
		sp.types[t] = true
	}

	sender, err := shoutrrr.CreateSender(sp.urls...)
	if err != nil {
		return nil, errors.New(sp.sanitize(err)).
			Category(errors.CategoryConfiguration).
			Component("notification").
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(stdlog.New(io.Discard, "", 0))
	sp.sender = sender
	return sp, nil
}

func (s *ShoutrrrProvider) Name() string             { return "shoutrrr" }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return s.types[t] }

// Send delivers n to every configured URL. The router applies its own
// timeout, so ctx is only checked before sending.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return retryable(s.sanitize(err))
		}
	}
	return nil
}

// sanitize strips configured URLs from err since they carry tokens
func (s *ShoutrrrProvider) sanitize(err error) error {
	msg := err.Error()
	for _, raw := range s.urls {
		msg = strings.ReplaceAll(msg, raw, redactURL(raw))
	}
	return errors.NewStd(msg)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[url]"
	}
	return u.Scheme + "://[redacted]"
}
