package metrics

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

// Manager хранит метрики сервиса объявлений
type Manager struct {
	Registry         *prometheus.Registry
	TransitionsTotal *prometheus.CounterVec
	APIErrorsTotal   *prometheus.CounterVec
	BulkItemsTotal   *prometheus.CounterVec
}

// NewManager создаёт и регистрирует метрики в отдельном реестре
func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kos_transitions_total",
		Help:      "Committed kos lifecycle transitions by event type.",
	}, []string{"event"})
	apiErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "API errors by operation and error kind.",
	}, []string{"op", "kind"})
	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_items_total",
		Help:      "Items processed by bulk operations by outcome.",
	}, []string{"op", "outcome"})

	registry.MustRegister(
		transitions,
		apiErrors,
		bulkItems,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:         registry,
		TransitionsTotal: transitions,
		APIErrorsTotal:   apiErrors,
		BulkItemsTotal:   bulkItems,
	}
}

// KosChanged считает зафиксированные переходы
func (m *Manager) KosChanged(_ context.Context, ev lifecycle.Event) {
	m.TransitionsTotal.WithLabelValues(string(ev.Type)).Inc()
}

// RecordError учитывает ошибку операции API
func (m *Manager) RecordError(op string, kind lifecycle.Kind) {
	m.APIErrorsTotal.WithLabelValues(op, string(kind)).Inc()
}

// RecordBulk учитывает результат пакетной операции
func (m *Manager) RecordBulk(op string, res lifecycle.BulkResult) {
	m.BulkItemsTotal.WithLabelValues(op, "succeeded").Add(float64(res.Count))
	m.BulkItemsTotal.WithLabelValues(op, "failed").Add(float64(len(res.Failed)))
	for _, f := range res.Failed {
		m.RecordError(op, f.Kind)
	}
}

// Handler отдаёт метрики в формате Prometheus
func (m *Manager) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
