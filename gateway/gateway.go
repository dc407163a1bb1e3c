package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/n9te9/federation-gateway/federation/apierror"
	"github.com/n9te9/federation-gateway/federation/executor"
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/shape"
	"github.com/n9te9/federation-gateway/federation/solution"
	"github.com/n9te9/federation-gateway/federation/steiner"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type GatewayService struct {
	Name        string      `yaml:"name"`
	Host        string      `yaml:"host"`
	SchemaFiles []string    `yaml:"schema_files"`
	Retry       RetryOption `yaml:"retry"`
}

type GatewayOption struct {
	Endpoint                    string               `yaml:"endpoint"`
	ServiceName                 string               `yaml:"service_name"`
	Port                        int                  `yaml:"port"`
	TimeoutDuration             string               `yaml:"timeout_duration" default:"5s"`
	EnableHangOverRequestHeader bool                 `yaml:"enable_hang_over_request_header" default:"true"`
	Services                    []GatewayService     `yaml:"services"`
	Opentelemetry               OpentelemetrySetting `yaml:"opentelemetry"`
}

type OpentelemetrySetting struct {
	TracingSetting OpentelemetryTracingSetting `yaml:"tracing"`
}

type OpentelemetryTracingSetting struct {
	Enable bool `yaml:"enable" default:"false"`
}

// forwardedHeaders lists the inbound headers hung over onto every subgraph
// dispatch when EnableHangOverRequestHeader is set — the ones a subgraph
// plausibly needs to make its own authorization/tracing decisions.
var forwardedHeaders = []string{"Authorization", "X-Request-Id", "X-Auth-Scopes"}

const schemaRegistrationPath = "/schema/registration"

type gateway struct {
	graphQLEndpoint string
	serviceName     string
	limits          operation.Limits

	// store holds the current *schemaStore; swapped atomically by
	// handleSchemaRegistration so in-flight requests always see one
	// consistent, fully-composed supergraph generation.
	store          atomic.Value
	httpClient     *http.Client
	forwardHeaders []string

	enableHangOverRequestHeader bool
	enableOpentelemetryTracing  bool
}

var _ http.Handler = (*gateway)(nil)

func NewGateway(settings GatewayOption) (*gateway, error) {
	httpClient := &http.Client{
		Timeout: 3 * time.Second,
	}
	if settings.Opentelemetry.TracingSetting.Enable {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	sdls := make(map[string]string, len(settings.Services))
	hosts := make(map[string]string, len(settings.Services))
	for _, s := range settings.Services {
		if len(s.SchemaFiles) == 0 {
			sdl, err := fetchSDL(s.Host, httpClient, s.Retry)
			if err != nil {
				return nil, fmt.Errorf("gateway: fetch SDL for %s: %w", s.Name, err)
			}
			sdls[s.Name] = sdl
			hosts[s.Name] = s.Host
			continue
		}

		var sdl []byte
		for _, f := range s.SchemaFiles {
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			sdl = append(sdl, src...)
		}
		sdls[s.Name] = string(sdl)
		hosts[s.Name] = s.Host
	}

	var forwardHeaders []string
	if settings.EnableHangOverRequestHeader {
		forwardHeaders = forwardedHeaders
	}

	engine, err := buildEngine(sdls, hosts, httpClient, forwardHeaders)
	if err != nil {
		return nil, fmt.Errorf("gateway: compose supergraph: %w", err)
	}

	g := &gateway{
		graphQLEndpoint:             settings.Endpoint,
		serviceName:                 settings.ServiceName,
		limits:                      operation.DefaultLimits,
		httpClient:                  httpClient,
		forwardHeaders:              forwardHeaders,
		enableHangOverRequestHeader: settings.EnableHangOverRequestHeader,
		enableOpentelemetryTracing:  settings.Opentelemetry.TracingSetting.Enable,
	}
	g.store.Store(&schemaStore{sdls: sdls, hosts: hosts, engine: engine})
	return g, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == schemaRegistrationPath {
		g.handleSchemaRegistration(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if g.enableHangOverRequestHeader {
		ctx = executor.SetRequestHeaderToContext(ctx, r.Header)
	}

	l := lexer.New(req.Query)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		writeErrors(w, []executor.GraphQLError{{Message: fmt.Sprintf("%v", p.Errors())}})
		return
	}

	engine := g.store.Load().(*schemaStore).engine

	bound, err := operation.Bind(engine.schema, doc, req.Variables, g.limits)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	sg, err := solution.Build(engine.schema, bound)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	tree, err := steiner.Solve(sg, terminalsOf(sg))
	if err != nil {
		writeAPIError(w, err)
		return
	}

	ps, err := partition.Build(sg, tree, bound)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	shapes, err := shape.Compile(engine.schema, bound, ps)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	plan := &executor.Plan{Schema: engine.schema, Document: bound, Partitions: ps, Shapes: shapes}
	auth := authContextFromHeader(r.Header)

	data, errs, err := engine.gatewayExecutor.Execute(ctx, plan, auth)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	body := map[string]any{"data": data}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// terminalsOf collects every indispensable query-field node: the set the
// Steiner solver must guarantee a path to from root.
func terminalsOf(g *solution.Graph) []solution.NodeId {
	var terminals []solution.NodeId
	for _, n := range g.AllNodes() {
		if n.Kind == solution.NodeQueryField && n.Indispensable {
			terminals = append(terminals, n.ID)
		}
	}
	return terminals
}

// authContextFromHeader derives the AuthContext the executor's
// QueryModifier evaluation checks @authenticated/@requires_scopes against.
// Authenticated is taken from the presence of an Authorization header, and
// scopes from a comma-separated X-Auth-Scopes header — the minimal
// convention a gateway sitting in front of its own auth proxy needs; richer
// deployments swap this for real token introspection.
func authContextFromHeader(h http.Header) executor.AuthContext {
	auth := executor.AuthContext{
		Authenticated: h.Get("Authorization") != "",
	}
	if raw := h.Get("X-Auth-Scopes"); raw != "" {
		auth.Scopes = make(map[string]bool)
		for _, scope := range strings.Split(raw, ",") {
			scope = strings.TrimSpace(scope)
			if scope != "" {
				auth.Scopes[scope] = true
			}
		}
	}
	return auth
}

// toAPIError renders any error the planning pipeline returns into the
// gateway-wide representation: BindError and UnreachableTerminalError (and
// any future bridge) carry their own ToAPIError, solution/partition/shape
// already return *apierror.Error directly for the failures they classify,
// and anything else is an unclassified internal failure.
func toAPIError(err error) *apierror.Error {
	switch e := err.(type) {
	case *apierror.Error:
		return e
	case interface{ ToAPIError() *apierror.Error }:
		return e.ToAPIError()
	default:
		return apierror.OperationPlanning(err.Error())
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeErrors(w, []executor.GraphQLError{apiErrorToGraphQLError(toAPIError(err))})
}

func apiErrorToGraphQLError(e *apierror.Error) executor.GraphQLError {
	return executor.GraphQLError{
		Message:    e.Message,
		Path:       e.Path,
		Extensions: e.Extensions(),
	}
}

func writeErrors(w http.ResponseWriter, errs []executor.GraphQLError) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"errors": errs})
}

func (g *gateway) Start(port int) error {
	fmt.Printf("Gateway started on port %d\n", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), g)
}
