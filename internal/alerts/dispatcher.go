package alerts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"store-dashboard-api/internal/cache"
	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/telemetry"
)

var errModelMissingSupplier = errors.New("product has no supplier reference")

// SupplierResolver provides the supplier point lookup.
type SupplierResolver interface {
	GetSupplier(id string) (*models.Supplier, error)
}

// EmailSender sends the outbound low-stock alert.
type EmailSender interface {
	SendLowStockAlert(ctx context.Context, supplierEmail, productName string, quantity int) error
}

// Dispatcher handles qualifying low-stock events off the event-handling path.
// Events are queued to a buffered channel and processed by a worker
// goroutine, so a slow or failing email send never delays the next change
// event. Failed sends are logged and lost; the same product re-triggers on
// its next qualifying update.
type Dispatcher struct {
	queue         chan *models.ChangeEvent
	stopChan      chan struct{}
	wg            sync.WaitGroup
	resolver      SupplierResolver
	sender        EmailSender
	supplierCache *cache.SupplierCache
	fallbackEmail string
	tel           *telemetry.PipelineTelemetry
	logger        *slog.Logger
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	QueueBufferSize int
	FallbackEmail   string
	Logger          *slog.Logger
}

// NewDispatcher creates a low-stock alert dispatcher. Call Start before
// dispatching and Stop on shutdown.
func NewDispatcher(cfg DispatcherConfig, resolver SupplierResolver, sender EmailSender, supplierCache *cache.SupplierCache, tel *telemetry.PipelineTelemetry) *Dispatcher {
	bufferSize := cfg.QueueBufferSize
	if bufferSize < 1 {
		bufferSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		queue:         make(chan *models.ChangeEvent, bufferSize),
		stopChan:      make(chan struct{}),
		resolver:      resolver,
		sender:        sender,
		supplierCache: supplierCache,
		fallbackEmail: cfg.FallbackEmail,
		tel:           tel,
		logger:        logger,
	}
}

// Start launches the dispatch worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
	d.logger.Debug("Low stock dispatcher started", "queue_capacity", cap(d.queue))
}

// Stop signals the worker to finish. An email already in flight completes;
// queued events that have not been picked up are abandoned.
func (d *Dispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
	d.logger.Info("Low stock dispatcher stopped")
}

// Dispatch queues a qualifying low-stock event. It never blocks: when the
// queue is full the event is dropped with an error log.
func (d *Dispatcher) Dispatch(event *models.ChangeEvent) {
	if event == nil || event.After == nil {
		return
	}

	select {
	case d.queue <- event:
		d.logger.Debug("Low stock event queued for email dispatch",
			"product_id", event.After.ID,
			"quantity", event.After.Quantity)
	default:
		d.logger.Error("Dispatch queue full, dropping low stock event",
			"product_id", event.After.ID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.process(event)
		case <-d.stopChan:
			return
		}
	}
}

// process resolves the supplier and sends the alert email. Every failure
// path is logged and swallowed: alerting is best-effort and must never
// surface as a pipeline error.
func (d *Dispatcher) process(event *models.ChangeEvent) {
	after := event.After

	supplier, err := d.lookupSupplier(after.SupplierID)
	if err != nil {
		d.logger.Warn("Supplier lookup failed, skipping low stock email",
			"product_id", after.ID,
			"supplier_id", after.SupplierID,
			"error", err)
		return
	}

	email := supplier.ContactEmail
	if email == "" {
		email = d.fallbackEmail
	}
	if email == "" {
		d.logger.Warn("No destination address for low stock email",
			"product_id", after.ID,
			"supplier_id", after.SupplierID)
		return
	}

	err = d.sender.SendLowStockAlert(context.Background(), email, after.Name, after.Quantity)
	d.tel.RecordEmailAttempt(context.Background(), err == nil)
	if err != nil {
		d.logger.Error("Failed to send low stock email",
			"product_id", after.ID,
			"supplier_email", email,
			"error", err)
		return
	}

	d.logger.Info("Low stock email sent",
		"product_id", after.ID,
		"product_name", after.Name,
		"quantity", after.Quantity,
		"supplier_email", email)
}

func (d *Dispatcher) lookupSupplier(id string) (*models.Supplier, error) {
	if id == "" {
		return nil, errModelMissingSupplier
	}

	if d.supplierCache != nil {
		if supplier, ok := d.supplierCache.Get(id); ok {
			return supplier, nil
		}
	}

	supplier, err := d.resolver.GetSupplier(id)
	if err != nil {
		return nil, err
	}

	if d.supplierCache != nil {
		d.supplierCache.Set(id, supplier)
	}
	return supplier, nil
}
