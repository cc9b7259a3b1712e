package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultCloudURL = "http://www.chessdb.cn/chessdb.php"
	cloudReferer    = "https://www.chessdb.cn/query/"
	cloudUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// CloudBook queries the chessdb.cn opening/endgame book
type CloudBook struct {
	url  string
	http *fasthttp.Client
}

type CloudOption func(*CloudBook)

// WithCloudURL overrides the query endpoint
func WithCloudURL(url string) CloudOption {
	return func(c *CloudBook) { c.url = url }
}

// WithHTTPClient replaces the underlying fasthttp client
func WithHTTPClient(client *fasthttp.Client) CloudOption {
	return func(c *CloudBook) { c.http = client }
}

func NewCloudBook(opts ...CloudOption) *CloudBook {
	c := &CloudBook{
		url:  DefaultCloudURL,
		http: &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query asks the book for the principal variation of fen. The request is
// bounded by timeout and by the context deadline, whichever comes first.
func (c *CloudBook) Query(ctx context.Context, fen string, timeout time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.url)
	req.URI().QueryArgs().Add("action", "querypv")
	req.URI().QueryArgs().Add("board", fen)
	req.Header.Set("Referer", cloudReferer)
	req.Header.SetUserAgent(cloudUserAgent)

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("cloud query: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("cloud query: status %d", code)
	}

	return parseQueryPV(string(resp.Body()))
}

// parseQueryPV decodes a querypv reply such as "score:12,depth:30,pv:h2e2|h9g7"
func parseQueryPV(body string) (*Result, error) {
	body = strings.TrimSpace(strings.TrimRight(body, "\x00"))

	switch body {
	case "", "unknown":
		return nil, ErrNoResult
	case "invalid board", "checkmate", "stalemate":
		return nil, fmt.Errorf("%w: %s", ErrTerminal, body)
	}

	res := &Result{Source: SourceCloud}
	for _, field := range strings.Split(body, ",") {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		switch key {
		case "score":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("cloud score %q: %w", value, err)
			}
			res.Score = n
		case "depth":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("cloud depth %q: %w", value, err)
			}
			res.Depth = n
		case "pv":
			res.PVs = strings.Split(value, "|")
		}
	}
	if len(res.PVs) == 0 {
		return nil, ErrNoResult
	}
	return res, nil
}
