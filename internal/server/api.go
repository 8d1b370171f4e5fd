package server

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchx/internal/repositories"
	"github.com/desertthunder/watchx/internal/shared"
)

// APIOptions wires the document service and feed proxy together.
type APIOptions struct {
	Documents repositories.Documents
	Feeds     FeedOptions
	APIToken  string
	Logger    *log.Logger
}

// NewAPI builds the router served by `watchx serve`.
//
// Document routes require the bearer token when one is configured. Health and
// feed routes are public.
func NewAPI(opts APIOptions) *BasicRouter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Feeds.Logger == nil {
		opts.Feeds.Logger = opts.Logger
	}

	public := NewBasicRouter()
	public.Use(Recoverer(opts.Logger), RequestLogger(opts.Logger))
	public.Handler(HealthHandler{})
	public.Handler(NewFeedHandler(opts.Feeds))

	if opts.Documents != nil {
		public.Use(BearerAuth(opts.APIToken))
		public.Handler(NewDocumentHandler(opts.Documents, opts.Logger))
	}

	return public
}
