package streamhttp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driphttp/drip/auth"
	"github.com/driphttp/drip/bytestream"
	"github.com/driphttp/drip/hexjson"
	"github.com/driphttp/drip/internal/logctx"
	"github.com/driphttp/drip/keepalive"
)

// Filler is the keep-alive byte written while a committed response waits
// for its payload. Newline is benign inside a streamed JSON body: clients
// strip leading whitespace before parsing.
const Filler byte = '\n'

var (
	_ http.Handler = (*Handler)(nil)

	jsonMediaType  = contenttype.NewMediaType("application/json")
	jsonMediaTypes = []contenttype.MediaType{jsonMediaType}
)

// HandlerFunc is the long-running computation behind an endpoint. It
// either yields a JSON-serializable result or fails with an error; the
// outcome crosses back to the controller as this explicit pair, never as a
// panic (panics inside the computation are recovered into errors).
//
// The context passed to the computation is detached from the request's:
// a client disconnect does not cancel it, only the configured invocation
// timeout does. A computation that wants to stop early on disconnect can
// watch r.Context() itself.
type HandlerFunc func(ctx context.Context, r *http.Request) (any, error)

// Option configures a Handler.
type Option func(*newConfig)

type newConfig struct {
	logger  *slog.Logger
	cfg     Config
	tickers keepalive.Factory
	metrics *metrics
}

// WithLogger sets the slog logger used by the handler. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithConfig replaces the full tunable set.
func WithConfig(cfg Config) Option {
	return func(c *newConfig) { c.cfg = cfg }
}

// WithKeepAlivePeriod overrides the keep-alive period.
func WithKeepAlivePeriod(d time.Duration) Option {
	return func(c *newConfig) { c.cfg.KeepAlivePeriod = d }
}

// WithBufferSize overrides the output buffer capacity.
func WithBufferSize(n int) Option {
	return func(c *newConfig) { c.cfg.BufferSize = n }
}

// WithInvocationTimeout overrides the hard bound on computation lifetime.
func WithInvocationTimeout(d time.Duration) Option {
	return func(c *newConfig) { c.cfg.InvocationTimeout = d }
}

// WithTickerFactory substitutes the keep-alive tick source. Tests use this
// with keepalive.Manual to drive time by explicit signaling.
func WithTickerFactory(f keepalive.Factory) Option {
	return func(c *newConfig) { c.tickers = f }
}

// WithRegisterer registers this handler's metrics on reg instead of the
// process-wide default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *newConfig) { c.metrics = newMetrics(reg) }
}

// Handler adapts one HandlerFunc into an http.Handler with keep-alive
// streaming semantics.
type Handler struct {
	fn      HandlerFunc
	log     *slog.Logger
	cfg     Config
	tickers keepalive.Factory
	metrics *metrics
}

// New constructs a Handler around fn.
func New(fn HandlerFunc, opts ...Option) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler func is required")
	}
	cfg := &newConfig{
		logger:  slog.Default(),
		cfg:     DefaultConfig(),
		tickers: keepalive.New,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.metrics == nil {
		cfg.metrics = sharedMetrics()
	}
	return &Handler{
		fn:      fn,
		log:     slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		cfg:     cfg.cfg,
		tickers: cfg.tickers,
		metrics: cfg.metrics,
	}, nil
}

// outcome is the explicit result of one invocation.
type outcome struct {
	value any
	err   error
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})
	if ui, ok := auth.UserFromContext(ctx); ok {
		ctx = logctx.WithUserData(ctx, &logctx.UserData{UserID: ui.UserID()})
	}
	h.log.InfoContext(ctx, "request.start")

	if r.Header.Get("Accept") != "" {
		if _, _, err := contenttype.GetAcceptableMediaType(r, jsonMediaTypes); err != nil {
			auth.WriteError(w, http.StatusNotAcceptable, "endpoint produces application/json")
			h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", r.Header.Get("Accept")))
			return
		}
	}

	f, ok := w.(http.Flusher)
	if !ok {
		auth.WriteError(w, http.StatusInternalServerError, "streaming unsupported by transport")
		h.log.ErrorContext(ctx, "flusher.missing")
		return
	}

	results := h.invoke(ctx, r)
	stream := bytestream.New(h.cfg.BufferSize)
	tick := h.tickers(h.cfg.KeepAlivePeriod)

	// drainDone is closed once the transport side has consumed the stream
	// to EOF. It is only armed after commitment; before that no bytes ever
	// enter the stream.
	var drainDone chan struct{}
	startDrain := func() {
		drainDone = make(chan struct{})
		go func() {
			defer close(drainDone)
			buf := make([]byte, 512)
			broken := false
			for {
				n, err := stream.Read(buf)
				if n > 0 && !broken {
					if _, werr := w.Write(buf[:n]); werr != nil {
						// Keep draining so the producer never blocks on a
						// dead client; the controller notices via ctx.
						broken = true
					} else {
						f.Flush()
					}
				}
				if err == io.EOF {
					return
				}
			}
		}()
	}

	committed := false
	finish := func(terminal string) {
		tick.Stop()
		_ = stream.Close()
		if drainDone != nil {
			<-drainDone
		}
		h.metrics.requests.WithLabelValues(terminal).Inc()
		h.log.InfoContext(ctx, "request.end",
			slog.String("outcome", terminal),
			slog.Bool("committed", committed),
			slog.Duration("dur", time.Since(start)),
		)
	}

	for {
		select {
		case <-tick.C():
			// Completion wins a simultaneous arrival: a tick that raced
			// with the invocation's result must not force commitment.
			select {
			case res := <-results:
				h.deliver(ctx, w, stream, res, committed, finish)
				return
			default:
			}
			if !committed {
				committed = true
				w.Header().Set("Content-Type", jsonMediaType.String())
				w.Header().Set("Cache-Control", "no-cache")
				w.Header().Set("X-Accel-Buffering", "no")
				w.WriteHeader(http.StatusOK)
				f.Flush()
				startDrain()
				h.metrics.ttfb.Observe(time.Since(start).Seconds())
				h.log.InfoContext(ctx, "stream.commit")
			}
			if _, err := stream.Write([]byte{Filler}); err != nil {
				h.log.ErrorContext(ctx, "stream.filler.fail", slog.String("err", err.Error()))
				finish(outcomeTruncated)
				panic(http.ErrAbortHandler)
			}
			h.metrics.fillers.Inc()

		case res := <-results:
			h.deliver(ctx, w, stream, res, committed, finish)
			return

		case <-ctx.Done():
			// Client went away before DONE. The invocation keeps running on
			// its detached context until its hard timeout; its result is
			// discarded.
			h.log.InfoContext(ctx, "request.disconnect")
			finish(outcomeDisconnected)
			return
		}
	}
}

// deliver finalizes the response once the invocation's outcome is known.
// Prior to commitment the status code is still free, so failures become a
// clean 500 and successes a fully buffered 200. After commitment the
// status is fixed: success appends the payload as the final chunk, failure
// drops the connection with no further bytes.
func (h *Handler) deliver(ctx context.Context, w http.ResponseWriter, stream *bytestream.Stream, res outcome, committed bool, finish func(string)) {
	var payload []byte
	if res.err == nil {
		var encErr error
		payload, encErr = hexjson.Marshal(res.value)
		if encErr != nil {
			h.log.ErrorContext(ctx, "payload.encode.fail", slog.String("err", encErr.Error()))
			res.err = fmt.Errorf("encode result: %w", encErr)
		}
	}

	if !committed {
		if res.err != nil {
			h.log.WarnContext(ctx, "invocation.fail", slog.String("err", res.err.Error()))
			auth.WriteError(w, http.StatusInternalServerError, res.err.Error())
			finish(outcomeError)
			return
		}
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(payload); err != nil {
			h.log.WarnContext(ctx, "response.write.fail", slog.String("err", err.Error()))
		}
		finish(outcomeOK)
		return
	}

	if res.err != nil {
		// Status line already sent; truncation is the only failure signal
		// left. Close with no further data and sever the connection.
		h.log.WarnContext(ctx, "invocation.fail.committed", slog.String("err", res.err.Error()))
		finish(outcomeTruncated)
		panic(http.ErrAbortHandler)
	}
	if _, err := stream.Write(payload); err != nil {
		h.log.ErrorContext(ctx, "payload.write.fail", slog.String("err", err.Error()))
		finish(outcomeTruncated)
		panic(http.ErrAbortHandler)
	}
	finish(outcomeOK)
}

// invoke starts the computation on its own goroutine. The outcome comes
// back on the returned channel as an explicit value/error pair; a panic in
// the computation is recovered and surfaced as an error. The computation's
// context is detached from the request so a client disconnect cannot
// cancel it mid-flight, but it is hard-bounded by the invocation timeout
// so an abandoned computation cannot leak indefinitely.
func (h *Handler) invoke(ctx context.Context, r *http.Request) <-chan outcome {
	results := make(chan outcome, 1)
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.InvocationTimeout)
	go func() {
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				h.log.ErrorContext(ctx, "invocation.panic", slog.Any("panic", p))
				results <- outcome{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		v, err := h.fn(ictx, r)
		results <- outcome{value: v, err: err}
	}()
	return results
}
