// Package maharera scrapes the agent search of the MahaRERA registry website.
//
// Everything that depends on the markup of the registry (paths, selectors,
// column positions, form field names) lives in this package.
package maharera

import (
	"context"
	"fmt"
	"math"
	"net/http/cookiejar"
	"net/url"
	"time"

	"maharera-api/internal/agents"
	"maharera-api/internal/telemetry"
	"maharera-api/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl   = "https://maharera.maharashtra.gov.in"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	// DefaultRequestsPerSecond bounds the request rate of a single session.
	DefaultRequestsPerSecond = 2
)

const (
	// both the priming GET and the paginated form POST go to the search page
	landingPath   = "/agents-search-result"
	searchPath    = "/agents-search-result"
	divisionsPath = "/get-division-data"
	districtsPath = "/div-district-data"
)

// Options configures a Registry, zero values fall back to the defaults above
// except RequestsPerSecond, where 0 disables the limiter.
type Options struct {
	BaseUrl           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Telemetry         telemetry.API
	// Dump receives every raw exchange with the registry when set.
	Dump restyutil.Output
}

// Registry is the agents.Source backed by the registry website. It holds no
// per-request state, every session gets its own http client and cookie jar.
type Registry struct {
	baseUrl   *url.URL
	userAgent string
	timeout   time.Duration
	rps       float64
	tel       telemetry.API
	dump      restyutil.Output
}

var _ agents.Source = Registry{}

func NewRegistry(opts Options) (Registry, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.SlogAPI{}
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Registry{}, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return Registry{}, fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
	}
	baseUrl.Path = ""
	baseUrl.RawQuery = ""

	return Registry{
		baseUrl:   baseUrl,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		rps:       opts.RequestsPerSecond,
		tel:       telemetry.NewScopedAPI("maharera", opts.Telemetry),
		dump:      opts.Dump,
	}, nil
}

// BaseUrl returns the origin every relative link is resolved against.
func (r Registry) BaseUrl() *url.URL {
	copied := *r.baseUrl
	return &copied
}

// reportBroken reports err unless ctx is done, a request cut short by its
// caller is not a registry failure.
func (r Registry) reportBroken(ctx context.Context, id string, err error, params ...any) {
	if ctx.Err() != nil {
		r.tel.ReportDebug(id, append([]any{err}, params...)...)
		return
	}
	r.tel.ReportBroken(id, append([]any{err}, params...)...)
}

func (r Registry) endpoint(path string) string {
	return r.baseUrl.JoinPath(path).String()
}

func (r Registry) newHttpClient() (*resty.Client, error) {
	client := resty.New()
	client.SetBaseURL(r.baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", r.userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(r.baseUrl.Hostname()))
	client.SetTimeout(r.timeout)

	if r.rps > 0 {
		burst := int(math.Max(1, math.Ceil(r.rps)))
		rateLimiter := rate.NewLimiter(rate.Limit(r.rps), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, r.tel)
	restyutil.Dump(client, r.dump)
	return client, nil
}
