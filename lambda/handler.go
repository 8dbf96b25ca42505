package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handler serves API Gateway proxy events through an http.Handler
type Handler func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewHandler adapts h to the API Gateway proxy integration
func NewHandler(h http.Handler) Handler {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		req, err := toHTTPRequest(ctx, request)
		if err != nil {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusBadRequest,
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       `{"error":"Invalid request"}`,
			}, nil
		}

		w := newResponseWriter()
		h.ServeHTTP(w, req)
		return w.response(), nil
	}
}

func toHTTPRequest(ctx context.Context, request events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode body: %w", err)
		}
		body = decoded
	}

	query := url.Values{}
	for k, vs := range request.MultiValueQueryStringParameters {
		query[k] = vs
	}
	for k, v := range request.QueryStringParameters {
		if _, ok := query[k]; !ok {
			query.Set(k, v)
		}
	}

	target := &url.URL{Path: request.Path, RawQuery: query.Encode()}
	req, err := http.NewRequestWithContext(ctx, request.HTTPMethod, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vs := range request.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range request.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.RemoteAddr = request.RequestContext.Identity.SourceIP
	return req, nil
}

// responseWriter buffers the handler's response for the proxy integration
type responseWriter struct {
	header     http.Header
	body       bytes.Buffer
	statusCode int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}, statusCode: http.StatusOK}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

func (w *responseWriter) WriteHeader(code int) { w.statusCode = code }

func (w *responseWriter) response() events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(w.header))
	for k, vs := range w.header {
		headers[k] = strings.Join(vs, ",")
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        w.statusCode,
		Headers:           headers,
		MultiValueHeaders: map[string][]string(w.header),
		Body:              w.body.String(),
	}
}
