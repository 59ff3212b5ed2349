package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// maxRequestBody caps the size of an /invoke request body.
const maxRequestBody = 10 << 20

// FunctionInfo describes one registered function over HTTP.
type FunctionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Signature   string `json:"signature"`
}

type invokeRequest struct {
	Args  []json.RawMessage          `json:"args"`
	Named map[string]json.RawMessage `json:"named"`
}

type invokeResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler returns the HTTP surface: /health, /functions and /invoke/{name}.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /functions", a.functionsHandler)
	mux.HandleFunc("POST /invoke/{name}", a.invokeHandler)
	return mux
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) functionsHandler(w http.ResponseWriter, _ *http.Request) {
	funcs := a.ns.Functions()
	out := make([]FunctionInfo, len(funcs))
	for i, fn := range funcs {
		out[i] = FunctionInfo{
			Name:        fn.Name,
			Description: fn.Description,
			Signature:   fn.Signature.Format(fn.Name),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) invokeHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	logger := a.logger.With("function", name, "remote_addr", r.RemoteAddr)

	var req invokeRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, invokeResponse{Error: fmt.Sprintf("malformed request body: %v", err)})
		return
	}
	call, err := decodeCall(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, invokeResponse{Error: err.Error()})
		return
	}

	val, err := a.ns.Invoke(ctxlog.WithLogger(r.Context(), logger), name, call)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, namespace.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, namespace.ErrInvalidArguments):
			status = http.StatusBadRequest
		}
		logger.Debug("Invocation over HTTP failed.", "status", status, "error", err)
		writeJSON(w, status, invokeResponse{Error: err.Error()})
		return
	}

	result, err := ctyutil.MarshalJSON(val, "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, invokeResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result})
}

func decodeCall(req invokeRequest) (namespace.Call, error) {
	var call namespace.Call
	for i, raw := range req.Args {
		v, err := ctyutil.FromJSON(raw)
		if err != nil {
			return call, fmt.Errorf("args[%d]: %w", i, err)
		}
		call.Positional = append(call.Positional, v)
	}
	for k, raw := range req.Named {
		v, err := ctyutil.FromJSON(raw)
		if err != nil {
			return call, fmt.Errorf("named[%s]: %w", k, err)
		}
		call = call.WithNamed(k, v)
	}
	return call, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs the HTTP surface on addr until ctx is done, then shuts down
// gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return a.Context(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("🩺 HTTP server starting", "address", ln.Addr().String())
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("HTTP server failed unexpectedly", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("HTTP server shut down gracefully.")
	return nil
}

// ResultJSON renders a function result for display: strings raw, everything
// else as indented JSON.
func ResultJSON(v cty.Value) (string, error) {
	if !v.IsNull() && v.IsKnown() && v.Type() == cty.String {
		return v.AsString(), nil
	}
	b, err := ctyutil.MarshalJSON(v, "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
