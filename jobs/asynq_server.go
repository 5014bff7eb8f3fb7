package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue. It satisfies the Mailer interfaces of the
// quotes and invoices handlers.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueQuoteEmail queues the customer notification for a sent quote.
func (c *Client) EnqueueQuoteEmail(quote *quotes.Quote, recipient string) error {
	task, err := NewDocumentEmailTask(DocumentEmailPayload{
		Kind:      "quote",
		DocNumber: quote.DocNumber,
		To:        recipient,
		Subject:   fmt.Sprintf("Offert %s från Fixco", quote.DocNumber),
		Body: fmt.Sprintf("Hej!\n\nDin offert %s är klar. Att betala efter avdrag: %s kr.\nOfferten är giltig till %s.\n\nVänliga hälsningar\nFixco",
			quote.DocNumber, quote.NetPayable.StringFixed(0), quote.ValidUntil.Format("2006-01-02")),
	})
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(QueueDefault))
	return err
}

// EnqueueInvoiceEmail queues the customer notification for a sent invoice.
func (c *Client) EnqueueInvoiceEmail(invoice *invoices.Invoice, recipient string) error {
	task, err := NewDocumentEmailTask(DocumentEmailPayload{
		Kind:      "invoice",
		DocNumber: invoice.DocNumber,
		To:        recipient,
		Subject:   fmt.Sprintf("Faktura %s från Fixco", invoice.DocNumber),
		Body: fmt.Sprintf("Hej!\n\nFaktura %s. Att betala: %s kr senast %s.\n\nVänliga hälsningar\nFixco",
			invoice.DocNumber, invoice.NetPayable.StringFixed(0), invoice.DueDate.Format("2006-01-02")),
	})
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(QueueDefault))
	return err
}

// EnqueueOverdueReminder queues a payment reminder for an overdue invoice.
func (c *Client) EnqueueOverdueReminder(invoice *invoices.Invoice, recipient string) error {
	task, err := NewDocumentEmailTask(DocumentEmailPayload{
		Kind:      "invoice_reminder",
		DocNumber: invoice.DocNumber,
		To:        recipient,
		Subject:   fmt.Sprintf("Påminnelse: faktura %s har förfallit", invoice.DocNumber),
		Body: fmt.Sprintf("Hej!\n\nFaktura %s förföll %s. Kvarstående belopp: %s kr.\nBortse från denna påminnelse om betalning redan är gjord.\n\nVänliga hälsningar\nFixco",
			invoice.DocNumber, invoice.DueDate.Format("2006-01-02"), invoice.Balance().StringFixed(0)),
	})
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + strconv.Itoa(pending) + `}`))
}
