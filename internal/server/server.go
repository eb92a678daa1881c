// Package server exposes a rule set as an HTTP transfer service.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/gortx/internal/arena"
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/ruleset"
	"github.com/jcorbin/gortx/internal/transfer"
	"github.com/jcorbin/gortx/internal/vm"
)

// Server translates request bodies with a shared rule set, running one
// processor per request.
type Server struct {
	router chi.Router
	rules  *ruleset.RuleSet
	log    zerolog.Logger
	opts   []transfer.Option

	// Timeout bounds each translation; zero means no bound beyond the
	// request's own context.
	Timeout time.Duration

	// MaxBody limits the size of a request body; zero means no limit.
	MaxBody int64
}

// New returns a server for rs; opts apply to every request, before any
// options given in its query.
func New(rs *ruleset.RuleSet, log zerolog.Logger, opts ...transfer.Option) *Server {
	s := &Server{
		rules: rs,
		log:   log,
		opts:  opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/rules", s.handleRules)
	r.Post("/transfer", s.handleTransfer)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"input_rules":  len(s.rules.InputRules),
		"output_rules": len(s.rules.OutputRules),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.rules.Decompile(&buf); err != nil {
		jsonError(w, "decompiling rules: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleTransfer translates the request body. Output is buffered, so that a
// failed translation answers with an error rather than partial text.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	opts, err := s.queryOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	body := r.Body
	if s.MaxBody > 0 {
		body = http.MaxBytesReader(w, body, s.MaxBody)
	}

	var out bytes.Buffer
	start := time.Now()
	err = transfer.New(s.rules, opts...).Process(ctx, body, &out)
	log := zerolog.Ctx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("transfer failed")
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	log.Debug().
		Int("bytes", out.Len()).
		Dur("took", time.Since(start)).
		Msg("transfer done")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(out.Bytes())
}

// queryOptions parses per request processor options: the null_flush,
// linear, coref, filter, and also_text flags, a tree mode, and trace to log
// engine events.
func (s *Server) queryOptions(r *http.Request) ([]transfer.Option, error) {
	q := r.URL.Query()
	opts := append([]transfer.Option(nil), s.opts...)

	flag := func(name string, opt func(bool) transfer.Option) error {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %v value %q", name, v)
		}
		opts = append(opts, opt(b))
		return nil
	}
	for name, opt := range map[string]func(bool) transfer.Option{
		"null_flush": transfer.WithNullFlush,
		"linear":     transfer.WithLinear,
		"coref":      transfer.WithCoref,
		"filter":     transfer.WithFilter,
	} {
		if err := flag(name, opt); err != nil {
			return nil, err
		}
	}

	if name := q.Get("trees"); name != "" {
		mode, err := chunk.ParseTreeMode(name)
		if err != nil {
			return nil, err
		}
		alsoText := false
		if err := flag("also_text", func(b bool) transfer.Option {
			alsoText = b
			return nil
		}); err != nil {
			return nil, err
		}
		opts = append(opts, transfer.WithTrees(mode, alsoText))
	}

	if err := flag("trace", func(b bool) transfer.Option {
		if !b {
			return nil
		}
		log := zerolog.Ctx(r.Context()).With().Logger()
		return transfer.WithTracer(transfer.ZerologTracer{Log: log})
	}); err != nil {
		return nil, err
	}

	return opts, nil
}

func errorStatus(err error) int {
	var (
		fault  vm.Fault
		limit  arena.LimitError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &limit):
		return http.StatusInsufficientStorage
	case errors.As(err, &fault):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down,
// letting requests in flight finish within grace.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, grace time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h, grace)
}

// Serve is ListenAndServe on an existing listener.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return eg.Wait()
}
