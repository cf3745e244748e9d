package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"seikenbot/internal"
	"seikenbot/pkg/entities"
	"seikenbot/pkg/tools"
)

const (
	secretTokenHeader  = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBodySize  = 1 << 20
	defaultWebhookPath = "/"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev entities.Event) error
}

type Options struct {
	Bind        string
	WebhookPath string
	// SecretToken is compared with the secret token header of every webhook request when set.
	SecretToken string
	ReadTimeout time.Duration
	// OnError receives handler failures; they never change the webhook response.
	OnError func(error, entities.Event)
	Metrics *tools.BotMetrics
	Atom    *zap.AtomicLevel
}

// API is the HTTP front of the bot: the Telegram webhook plus service endpoints.
// Every accepted update is dispatched on its own goroutine after the request has been acknowledged.
type API struct {
	srv        *http.Server
	dispatcher Dispatcher
	opts       Options
	zap        *zap.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	inFlight   sync.WaitGroup
}

type mwLog struct{ *zap.Logger }

func (m mwLog) Print(v ...interface{}) { m.Sugar().Debug(v...) }

type promLog struct{ *zap.Logger }

func (p promLog) Println(v ...interface{}) { p.Sugar().Error(v...) }

func NewAPI(dispatcher Dispatcher, logger *zap.Logger, opts Options) *API {
	if opts.WebhookPath == "" {
		opts.WebhookPath = defaultWebhookPath
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	a := &API{dispatcher: dispatcher, opts: opts, zap: logger, baseCtx: baseCtx, cancelBase: cancel}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: mwLog{logger}}))
	r.Use(middleware.Recoverer)
	r.Mount("/", a.routes())
	a.srv = &http.Server{Addr: opts.Bind, Handler: r, ReadHeaderTimeout: opts.ReadTimeout, ReadTimeout: opts.ReadTimeout}
	return a
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Post(a.opts.WebhookPath, a.webhook)
	r.Get("/version", internal.VersionHTTPHandler)
	r.Get("/health", health)
	r.Handle("/metrics", tools.PrometheusHTTPMetricsHandler(promLog{a.zap}))
	if a.opts.Atom != nil {
		r.Handle("/log/level", a.opts.Atom)
	}
	return r
}

func (a *API) Start() error {
	l, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return errors.Errorf("Failed to start webhook API at '%s': %v", a.srv.Addr, err)
	}
	a.zap.Info("Webhook API started", zap.String("address", l.Addr().String()))
	go func() {
		err := a.srv.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.zap.Fatal("Failed to serve webhook API", zap.String("address", a.srv.Addr), zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops accepting updates and waits for in-flight dispatches.
// Dispatches still running when the timeout expires get their context canceled.
func (a *API) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.zap.Error("Failed to shutdown webhook API", zap.Error(err))
	}
	done := make(chan struct{})
	go func() {
		a.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.zap.Warn("Canceling dispatches which did not finish in time", zap.Duration("timeout", timeout))
		a.cancelBase()
		<-done
	}
	a.cancelBase()
}

// Wait blocks until all dispatches started so far have finished.
func (a *API) Wait() {
	a.inFlight.Wait()
}

func (a *API) webhook(w http.ResponseWriter, r *http.Request) {
	if secret := a.opts.SecretToken; secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			a.updateReceived(tools.UpdateUnauthorized)
			a.zap.Warn("Rejected webhook request with invalid secret token")
			http.Error(w, "invalid secret token", http.StatusUnauthorized)
			return
		}
	}
	var update telebot.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBodySize)).Decode(&update); err != nil {
		a.updateReceived(tools.UpdateMalformed)
		a.zap.Error("Failed to decode telegram update", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to decode update: %v", err), http.StatusBadRequest)
		return
	}
	ev, ok := entities.EventFromUpdate(update)
	if !ok {
		a.updateReceived(tools.UpdateIgnored)
		a.zap.Debug("Ignoring update without a message", zap.Int("update_id", update.ID))
		w.WriteHeader(http.StatusOK)
		return
	}
	a.updateReceived(tools.UpdateAccepted)
	a.inFlight.Add(1)
	go a.process(ev)
	w.WriteHeader(http.StatusOK)
}

func (a *API) process(ev entities.Event) {
	defer a.inFlight.Done()
	defer func() {
		if rec := recover(); rec != nil {
			a.onError(errors.Errorf("panic in dispatch: %v", rec), ev)
		}
	}()
	if err := a.dispatcher.Dispatch(a.baseCtx, ev); err != nil {
		a.onError(err, ev)
	}
}

func (a *API) onError(err error, ev entities.Event) {
	if a.opts.OnError != nil {
		a.opts.OnError(err, ev)
		return
	}
	a.zap.Error("Failed to process update", zap.Int("update_id", ev.UpdateID), zap.Error(err))
}

func (a *API) updateReceived(status string) {
	if a.opts.Metrics != nil {
		a.opts.Metrics.UpdateReceived(status)
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, "{\"status\":\"ok\"}\n")
}
