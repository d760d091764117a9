package audit

import "github.com/vshulcz/rtcobserver/pkg/observer"

// Observer receives audit events.
type Observer = observer.Observer[Event]

type ObserverFunc = observer.ObserverFunc[Event]

type Publisher = observer.Publisher[Event]

// Subject fans out audit events to the configured sinks.
type Subject = observer.Subject[Event]

func NewSubject(observers ...Observer) *Subject {
	return observer.NewSubject(observers...)
}
