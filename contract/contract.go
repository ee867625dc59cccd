//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"treasure-hunt/domain"
	"treasure-hunt/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// The supervisor restarts it when it crashes
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, so workers don't carry a name themselves.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives every published event in-process (search index, projections).
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// Publisher fans an event out to every live connection. It never fails towards the caller.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

// Connection is one live duplex channel.
// Send only enqueues, delivery happens on the connection's own writer.
type Connection interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

type IRegistry interface {
	Register(conn Connection) bool
	Unregister(id string) (Connection, bool)
	Connections() []Connection
	Len() int
}

// RelayFilter decides what a client-originated payload becomes before it is relayed.
type RelayFilter interface {
	Filter(ctx context.Context, payload []byte) ([]byte, error)
}

// IdentityProvider is the external OAuth2 identity service.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Resolve(ctx context.Context, code string) (string, error)
}

// StateCodec embeds an address into the OAuth state and gets it back.
type StateCodec interface {
	Encode(address string) (string, error)
	Decode(state string) (string, error)
}

// StoreBackend persists whole datasets. A failed save leaves the prior data intact.
type StoreBackend interface {
	Load() (domain.Dataset, error)
	SaveLinks(links domain.Links) error
	SaveMessages(messages []domain.ChatMessage) error
	Close() error
}

type Moderator interface {
	Censor(text string) (string, []string)
}
