package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/aquamarinepk/aqm"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxResponseSize = 8 << 20
)

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithNormalizer(n *normalize.Normalizer) ClientOption {
	return func(c *Client) {
		if n != nil {
			c.normalizer = n
		}
	}
}

func WithLogger(logger aqm.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks JSON to the POS backend. Calls are never retried.
type Client struct {
	baseURL    string
	http       *http.Client
	normalizer *normalize.Normalizer
	logger     aqm.Logger
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		normalizer: normalize.New(),
		logger:     aqm.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches a resource collection.
func (c *Client) List(ctx context.Context, sess Session, resource string) (normalize.Result, error) {
	res, ok := Lookup(resource)
	if !ok {
		return emptyResult(), fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	ep, _ := res.Endpoint(ActionList)
	return c.call(ctx, sess, res, ep, map[string]interface{}{})
}

// Mutate runs a create, update, delete or resource-specific action. id is
// required for everything but create.
func (c *Client) Mutate(ctx context.Context, sess Session, resource, action, id string, fields map[string]interface{}) (normalize.Result, error) {
	res, ok := Lookup(resource)
	if !ok {
		return emptyResult(), fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	ep, ok := res.Endpoint(action)
	if !ok || action == ActionList {
		return emptyResult(), fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, resource)
	}
	if action != ActionCreate && strings.TrimSpace(id) == "" {
		return emptyResult(), fmt.Errorf("%w: %s on %s", ErrMissingIdentifier, action, resource)
	}

	body := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		body[k] = v
	}
	if id != "" {
		body[res.IDField] = numericOrString(id)
	}
	return c.call(ctx, sess, res, ep, body)
}

func (c *Client) call(ctx context.Context, sess Session, res Resource, ep Endpoint, body map[string]interface{}) (normalize.Result, error) {
	for k, v := range sess.discriminators() {
		if _, set := body[k]; !set {
			body[k] = v
		}
	}

	req, err := c.newRequest(ctx, ep, body)
	if err != nil {
		return emptyResult(), fmt.Errorf("cannot build %s request: %w", res.Name, err)
	}
	sess.apply(req)

	log := c.logger.With("resource", res.Name)
	log.Debug("backend call", "method", ep.Method, "path", ep.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Info("backend unreachable", "path", ep.Path, "error", err)
		return emptyResult(), networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return emptyResult(), networkError(err)
	}

	return c.interpret(res, resp.StatusCode, data)
}

func (c *Client) newRequest(ctx context.Context, ep Endpoint, body map[string]interface{}) (*http.Request, error) {
	target := c.baseURL + ep.Path

	if ep.Method == http.MethodGet {
		q := url.Values{}
		for k, v := range body {
			q.Set(k, fmt.Sprint(v))
		}
		if len(q) > 0 {
			target += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, ep.Method, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, ep.Method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// interpret turns a raw response into a result or an *Error.
func (c *Client) interpret(res Resource, status int, data []byte) (normalize.Result, error) {
	ok := status >= 200 && status < 300
	n := c.normalizer.With(normalize.WithIDAliases(res.IDAliases...))

	raw, err := normalize.Parse(data)
	if err != nil {
		if !ok {
			return emptyResult(), statusError(status)
		}
		return n.Decode(data, res.CandidateKeys...), nil
	}

	if explicitFailure(raw) {
		return emptyResult(), backendError(status, normalize.FailureMessage(raw))
	}

	result := n.Normalize(raw, res.CandidateKeys...)
	if result.IsErrorShape {
		return result, backendError(status, result.ErrorMessage)
	}
	if !ok {
		return emptyResult(), statusError(status)
	}
	return result, nil
}

// explicitFailure reports a top-level success flag that is exactly false.
func explicitFailure(raw interface{}) bool {
	v, ok := normalize.Field(raw, "success")
	if !ok {
		return false
	}
	b, isBool := v.(bool)
	return isBool && !b
}

func emptyResult() normalize.Result {
	return normalize.Result{Items: []normalize.Record{}, MatchedPath: normalize.PathEmpty, Branch: normalize.BranchEmpty}
}
