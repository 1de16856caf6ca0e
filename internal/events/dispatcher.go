package events

import (
	"context"
	"sync"

	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
)

// Handler procesa un evento publicado.
type Handler func(context.Context, Event)

// Dispatcher publica eventos de transición hacia los consumidores suscriptos
// (notificaciones, auditoría). La publicación es fire-and-forget: el núcleo no
// espera confirmación de entrega.
type Dispatcher interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType Type, handler Handler)
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[Type][]Handler
}

// NewInMemoryDispatcher crea un dispatcher sincrónico en proceso.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[Type][]Handler),
	}
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) {
	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn("Event handler panicked", map[string]interface{}{
						"event_type": event.Type,
						"panic":      r,
					})
				}
			}()
			handler(ctx, event)
		}()
	}
}

func (d *inMemoryDispatcher) Subscribe(eventType Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
