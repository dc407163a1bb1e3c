package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// HTTPSubgraphClient is the default SubgraphClient: one POST per dispatch,
// body {"query", "variables"}, matching the wire contract every subgraph in
// this gateway's fleet already speaks.
type HTTPSubgraphClient struct {
	HTTPClient *http.Client

	// ForwardHeaders lists header names hung over from the inbound gateway
	// request (stashed on ctx via SetRequestHeaderToContext) onto every
	// subgraph dispatch, case-insensitively. Nil forwards nothing.
	ForwardHeaders []string
}

type subgraphEnvelope struct {
	Data   map[string]any `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

func (c *HTTPSubgraphClient) Do(ctx context.Context, host, query string, variables map[string]any) (map[string]any, []GraphQLError, error) {
	body := map[string]any{"query": query}
	if len(variables) > 0 {
		body["variables"] = variables
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("executor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if inbound := GetRequestHeaderFromContext(ctx); inbound != nil {
		for _, name := range c.ForwardHeaders {
			if v := inbound.Get(name); v != "" {
				req.Header.Set(name, v)
			}
		}
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: dispatch to %s: %w", host, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: read response from %s: %w", host, err)
	}

	var env subgraphEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("executor: decode response from %s: %w", host, err)
	}

	return env.Data, env.Errors, nil
}
