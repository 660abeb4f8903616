package arca

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The remote endpoints answer with small documents; anything past this is a
// broken response.
const maxResponseBytes = 4 << 20

// defaultHTTPClient bounds every exchange. The upstream services are known to
// hang; an unbounded client would block the caller indefinitely.
var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// soapClient posts SOAP 1.1 envelopes to a fixed endpoint. Only the shapes
// WSAA and WSFEv1 use are modeled.
type soapClient struct {
	endpoint string
	http     *http.Client
}

func newSOAPClient(endpoint string, hc *http.Client) *soapClient {
	if hc == nil {
		hc = defaultHTTPClient
	}
	return &soapClient{endpoint: endpoint, http: hc}
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Body    requestBody
}

type requestBody struct {
	XMLName xml.Name `xml:"soapenv:Body"`
	Payload any
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *soapFault `xml:"Fault"`
		Inner []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

// faultError is a protocol-level fault reported by the remote service. The
// callers map it onto their own error kind (auth for WSAA, service for WSFE).
type faultError struct {
	code   string
	reason string
}

func (e *faultError) Error() string {
	return fmt.Sprintf("soap fault %s: %s", e.code, e.reason)
}

// call posts payload wrapped in an envelope and decodes the response body
// element into out. Transport failures come back as KindConnection errors,
// faults as *faultError, anything else undecodable as a plain error.
func (c *soapClient) call(ctx context.Context, action string, payload, out any) error {
	body, err := xml.Marshal(requestEnvelope{
		NS:   "http://schemas.xmlsoap.org/soap/envelope/",
		Body: requestBody{Payload: payload},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return connErr(err, "post %s", c.endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return connErr(err, "read response from %s", c.endpoint)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return connErr(err, "http %d from %s", resp.StatusCode, c.endpoint)
		}
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Body.Fault != nil {
		return &faultError{code: env.Body.Fault.Code, reason: env.Body.Fault.Reason}
	}
	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(env.Body.Inner, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
