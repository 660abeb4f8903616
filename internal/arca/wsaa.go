package arca

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"facturante.ar/internal/cuit"
	"facturante.ar/internal/obs"
)

// ServiceWSFE is the service name used when requesting tickets for the
// electronic invoicing webservice.
const ServiceWSFE = "wsfe"

// WSAAClient authenticates against the WSAA webservice and manages ticket
// reuse through an injected TicketCache. Concurrent cache misses for the same
// (service, cuit, ambiente) key are collapsed into a single remote login.
type WSAAClient struct {
	ambiente Ambiente
	soap     *soapClient
	cache    *TicketCache
	group    singleflight.Group
	now      func() time.Time
}

// WSAAOption configures the client.
type WSAAOption func(*WSAAClient)

// WithWSAAEndpoint overrides the environment endpoint, mainly for tests.
func WithWSAAEndpoint(url string) WSAAOption {
	return func(c *WSAAClient) { c.soap.endpoint = url }
}

// WithWSAAHTTPClient overrides the HTTP client.
func WithWSAAHTTPClient(hc *http.Client) WSAAOption {
	return func(c *WSAAClient) { c.soap.http = hc }
}

// WithWSAAClock injects a clock for deterministic tests.
func WithWSAAClock(now func() time.Time) WSAAOption {
	return func(c *WSAAClient) { c.now = now }
}

// NewWSAAClient creates a client for the given environment. The cache is
// required; construct one per process and share it.
func NewWSAAClient(ambiente Ambiente, cache *TicketCache, opts ...WSAAOption) *WSAAClient {
	c := &WSAAClient{
		ambiente: ambiente,
		soap:     newSOAPClient(ambiente.WSAAEndpoint(), nil),
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginCmsRequest struct {
	XMLName xml.Name `xml:"http://wsaa.view.sua.dvadac.desein.afip.gov loginCms"`
	In0     string   `xml:"in0"`
}

type loginCmsResponse struct {
	XMLName xml.Name `xml:"loginCmsResponse"`
	Return  string   `xml:"loginCmsReturn"`
}

type loginTicketResponse struct {
	XMLName xml.Name `xml:"loginTicketResponse"`
	Header  struct {
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// Login obtains an access ticket for (taxID, service), reusing a cached one
// unless it is missing, expired, near expiry, or forceNew is set. On success
// the ticket is cached before returning.
func (c *WSAAClient) Login(ctx context.Context, taxID, service string, certData, keyData []byte, forceNew bool) (Ticket, error) {
	cleanCUIT := cuit.Clean(taxID)
	key := CacheKey(service, cleanCUIT, c.ambiente)

	if !forceNew {
		if t, ok := c.cache.Get(key); ok {
			obs.Log("wsaa ticket cache hit", map[string]any{"service": service, "cuit": cleanCUIT})
			return t, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.login(ctx, key, service, certData, keyData)
	})
	if err != nil {
		return Ticket{}, err
	}
	return v.(Ticket), nil
}

func (c *WSAAClient) login(ctx context.Context, cacheKey, service string, certData, keyData []byte) (Ticket, error) {
	cms, err := CreateSignedTRA(certData, keyData, service, maxTRATTL, c.now())
	if err != nil {
		return Ticket{}, err
	}

	start := time.Now()
	var resp loginCmsResponse
	err = c.soap.call(ctx, "urn:loginCms", loginCmsRequest{In0: cms}, &resp)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.ObserveArcaCall("wsaa", "loginCms", outcome, time.Since(start))

	if err != nil {
		var fault *faultError
		switch {
		case KindOf(err) != 0:
			return Ticket{}, err
		case errors.As(err, &fault):
			return Ticket{}, authErr(fault, "wsaa fault: %s", fault.reason)
		default:
			return Ticket{}, authErr(err, "unexpected wsaa failure")
		}
	}

	ticket, err := parseLoginTicket(resp.Return, service)
	if err != nil {
		return Ticket{}, err
	}

	c.cache.Set(cacheKey, ticket)
	obs.Log("wsaa ticket obtained", map[string]any{
		"service":    service,
		"expiration": ticket.Expiration.Format(time.RFC3339),
	})
	return ticket, nil
}

// parseLoginTicket extracts token, sign and expiration from the XML the WSAA
// returns inside loginCmsReturn. Any missing field is a protocol error, never
// an empty-token success.
func parseLoginTicket(raw, service string) (Ticket, error) {
	var ltr loginTicketResponse
	if err := xml.Unmarshal([]byte(raw), &ltr); err != nil {
		return Ticket{}, authErr(err, "parse login ticket response")
	}
	if ltr.Credentials.Token == "" || ltr.Credentials.Sign == "" {
		return Ticket{}, authErr(nil, "login response missing token or sign")
	}
	expStr := strings.TrimSpace(ltr.Header.ExpirationTime)
	if expStr == "" {
		return Ticket{}, authErr(nil, "login response missing expirationTime")
	}
	exp, err := time.Parse(time.RFC3339, expStr)
	if err != nil {
		return Ticket{}, authErr(err, "parse expirationTime %q", expStr)
	}
	return Ticket{
		Token:      ltr.Credentials.Token,
		Sign:       ltr.Credentials.Sign,
		Expiration: exp,
		Service:    service,
	}, nil
}

// Invalidate drops the cached ticket for (taxID, service) only; tickets for
// other services or environments are untouched.
func (c *WSAAClient) Invalidate(taxID, service string) {
	c.cache.Delete(CacheKey(service, cuit.Clean(taxID), c.ambiente))
}

// Ambiente returns the environment this client talks to.
func (c *WSAAClient) Ambiente() Ambiente { return c.ambiente }
