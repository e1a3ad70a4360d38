package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MaxBudget caps the step budget a client may request.
const MaxBudget = 10000

// ValidateResponse reports every problem of a definition.
type ValidateResponse struct {
	Valid        bool     `json:"valid" jsonschema_description:"True when the automaton can be built"`
	Errors       []string `json:"errors,omitempty" jsonschema_description:"Every violated invariant"`
	AutoDeclared []string `json:"auto_declared,omitempty" jsonschema_description:"Push symbols added to the stack alphabet"`
}

// RunResponse is returned by the run tools.
type RunResponse struct {
	RunID    string          `json:"run_id" jsonschema_description:"Identifier of the persisted run"`
	Snapshot domain.Snapshot `json:"snapshot" jsonschema_description:"Frontier after the operation"`
}

// Server exposes the simulator as an MCP server.
type Server struct {
	sessions  *session.Manager
	loader    ports.DefinitionLoader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLoader enables definition_id arguments and the definitions resource.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

// WithLogger configures the logger. Stdout carries JSON-RPC, so it must
// write elsewhere.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("pdasim-mcp", pdasim.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. to serve it over SSE.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// SSEHandler mounts the SSE transport (/sse and /message) on one handler.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	return mux
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.SSEHandler(fmt.Sprintf("http://localhost:%d", port)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func definitionArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithObject("definition", mcp.Description("Automaton definition: states, alphabet, stack_symbols, initial_state, initial_stack_symbol, accept_states, transitions[{from_state, input_symbol, stack_symbol, to_state, stack_push}] or rules in compact notation (q0,a,Z→q0,AZ per line)")),
		mcp.WithString("definition_id", mcp.Description("ID of a definition in the library (instead of definition)")),
		mcp.WithString("input", mcp.Description("Input string; overrides the definition's input_string")),
	}
}

func (s *Server) registerTools() {
	// TOOL: simulate
	simulate := append(definitionArgs(),
		mcp.WithDescription("Simulate a nondeterministic pushdown automaton on an input string and return the verdict with the accepting traces."),
		mcp.WithNumber("budget", mcp.Description("Maximum number of generations (default 1000)")),
		mcp.WithBoolean("dedup", mcp.Description("Drop configurations already seen, bounding epsilon loops")),
		mcp.WithBoolean("stop_on_accept", mcp.Description("Stop as soon as any configuration accepts")),
		mcp.WithOutputSchema[runner.Result](),
	)
	s.mcpServer.AddTool(mcp.NewTool("simulate", simulate...), mcp.NewStructuredToolHandler(s.handleSimulate))

	// TOOL: validate
	validate := append(definitionArgs(),
		mcp.WithDescription("Validate an automaton definition and report every problem."),
		mcp.WithBoolean("auto_declare", mcp.Description("Add push symbols missing from stack_symbols")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(mcp.NewTool("validate", validate...), mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: start_run
	start := append(definitionArgs(),
		mcp.WithDescription("Start a persisted run that can be advanced step by step."),
		mcp.WithString("run_id", mcp.Description("Run ID (generated when omitted)")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(mcp.NewTool("start_run", start...), mcp.NewStructuredToolHandler(s.handleStartRun))

	// TOOL: advance_run
	s.mcpServer.AddTool(mcp.NewTool("advance_run",
		mcp.WithDescription("Advance a persisted run by one or more generations."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithNumber("steps", mcp.Description("Generations to compute (default 1)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleAdvanceRun))

	// TOOL: trace
	s.mcpServer.AddTool(mcp.NewTool("trace",
		mcp.WithDescription("Return the root-to-leaf path of a configuration of a persisted run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithNumber("config_id", mcp.Required(), mcp.Description("Configuration ID from a snapshot")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		runID, _ := args["run_id"].(string)
		id, ok := intArg(args, "config_id")
		if !ok {
			return mcp.NewToolResultError("config_id must be a number"), nil
		}
		trace, err := s.sessions.Trace(ctx, runID, domain.ConfigID(id))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("trace failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(trace)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleSimulate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (runner.Result, error) {
	def, err := s.resolveDefinition(ctx, args)
	if err != nil {
		return runner.Result{}, err
	}
	budget, ok := intArg(args, "budget")
	switch {
	case !ok || budget <= 0:
		budget = runner.DefaultBudget
	case budget > MaxBudget:
		budget = MaxBudget
	}
	opts := []runner.Option{runner.WithBudget(budget), runner.WithLogger(s.logger)}
	if b, _ := args["dedup"].(bool); b {
		opts = append(opts, runner.WithDedup())
	}
	if b, _ := args["stop_on_accept"].(bool); b {
		opts = append(opts, runner.WithStopOnAccept())
	}

	eng, err := pdasim.New(*def, pdasim.WithLogger(s.logger))
	if err != nil {
		return runner.Result{}, describe(err)
	}
	return eng.Run(ctx, opts...)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	def, err := s.resolveDefinition(ctx, args)
	if err != nil {
		return ValidateResponse{Errors: []string{err.Error()}}, nil
	}
	var opts []automaton.Option
	if b, _ := args["auto_declare"].(bool); b {
		opts = append(opts, automaton.WithAutoDeclare())
	}
	m, err := automaton.FromDefinition(*def, opts...)
	if err != nil {
		resp := ValidateResponse{}
		for _, e := range automaton.ValidationErrors(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
		return resp, nil
	}
	resp := ValidateResponse{Valid: true}
	for _, sym := range m.AutoDeclared() {
		resp.AutoDeclared = append(resp.AutoDeclared, string(sym))
	}
	return resp, nil
}

func (s *Server) handleStartRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	def, err := s.resolveDefinition(ctx, args)
	if err != nil {
		return RunResponse{}, err
	}
	runID, _ := args["run_id"].(string)
	id, snap, err := s.sessions.Start(ctx, runID, *def)
	if err != nil {
		return RunResponse{}, describe(err)
	}
	return RunResponse{RunID: id, Snapshot: snap}, nil
}

func (s *Server) handleAdvanceRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	runID, _ := args["run_id"].(string)
	steps, ok := intArg(args, "steps")
	if !ok || steps < 1 {
		steps = 1
	}
	if steps > MaxBudget {
		steps = MaxBudget
	}
	snap, err := s.sessions.Advance(ctx, runID, steps)
	if err != nil {
		return RunResponse{}, fmt.Errorf("advance failed: %w", err)
	}
	return RunResponse{RunID: runID, Snapshot: snap}, nil
}

// resolveDefinition reads the definition object or loads definition_id,
// then applies the input override and expands compact rules.
func (s *Server) resolveDefinition(ctx context.Context, args map[string]interface{}) (*domain.Definition, error) {
	var def *domain.Definition
	raw, hasObject := args["definition"].(map[string]interface{})
	id, _ := args["definition_id"].(string)
	switch {
	case hasObject && id != "":
		return nil, errors.New("definition and definition_id are mutually exclusive")
	case hasObject:
		decoded, err := domain.DecodeDefinition(raw)
		if err != nil {
			return nil, err
		}
		def = decoded
	case id != "":
		if s.loader == nil {
			return nil, errors.New("no definition library configured")
		}
		loaded, err := s.loader.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load definition %s: %w", id, err)
		}
		def = loaded
	default:
		return nil, errors.New("definition or definition_id is required")
	}
	if input, ok := args["input"].(string); ok {
		def.InputString = input
	}
	if err := compiler.Expand(def); err != nil {
		return nil, err
	}
	return def, nil
}

// describe flattens a validation aggregate into one readable error.
func describe(err error) error {
	errs := automaton.ValidationErrors(err)
	if len(errs) == 0 {
		return err
	}
	msg := "invalid automaton:"
	for _, e := range errs {
		msg += "\n- " + e.Error()
	}
	return errors.New(msg)
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func (s *Server) registerResources() {
	if s.loader == nil {
		return
	}
	// EXPOSE: pdasim://definitions
	s.mcpServer.AddResource(mcp.NewResource("pdasim://definitions", "Definition Library",
		mcp.WithResourceDescription("IDs of the automata available as definition_id"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.loader.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "pdasim://definitions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
