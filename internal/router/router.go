// Package router sends trading commands over the stream or as requests,
// depending on the strategy and the connection state at call time.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"hstrader/internal/session"
	"hstrader/internal/wire"
	"hstrader/logger"
	"hstrader/models"
)

// ErrNotConnected is session.ErrNotConnected.
var ErrNotConnected = session.ErrNotConnected

// Route is the transport chosen for one command.
type Route int

const (
	RouteRequest Route = iota
	RouteStream
)

func (r Route) String() string {
	if r == RouteStream {
		return "stream"
	}
	return "request"
}

// Decide picks the route for one command.
func Decide(strategy session.Strategy, connected bool) (Route, error) {
	switch strategy {
	case session.StrategyAuto:
		if connected {
			return RouteStream, nil
		}
		return RouteRequest, nil
	case session.StrategyStreamOnly:
		if connected {
			return RouteStream, nil
		}
		return RouteRequest, ErrNotConnected
	case session.StrategyRequestOnly:
		return RouteRequest, nil
	default:
		return RouteRequest, fmt.Errorf("unknown strategy %v", strategy)
	}
}

// State reports the inputs of Decide.
type State interface {
	Strategy() session.Strategy
	Connected() bool
}

// Stream sends one command envelope.
type Stream interface {
	Send(command string, payload interface{}) error
}

// Requests is the request/response side of every routed command.
type Requests interface {
	CreateOrder(ctx context.Context, req models.CreateOrder) (json.RawMessage, error)
	UpdateOrder(ctx context.Context, req models.UpdateOrder) (json.RawMessage, error)
	CancelOrder(ctx context.Context, req models.CancelOrder) error
	UpdatePosition(ctx context.Context, req models.UpdatePosition) (json.RawMessage, error)
	ClosePosition(ctx context.Context, req models.ClosePosition) (json.RawMessage, error)
}

type Router struct {
	state    State
	stream   Stream
	requests Requests
	log      *logger.Entry
}

func New(state State, stream Stream, requests Requests) *Router {
	return &Router{
		state:    state,
		stream:   stream,
		requests: requests,
		log:      logger.GetLogger().WithComponent("router"),
	}
}

func (r *Router) route(command string) (Route, error) {
	route, err := Decide(r.state.Strategy(), r.state.Connected())
	if err != nil {
		return route, fmt.Errorf("%s: %w", command, err)
	}
	r.log.WithFields(logger.Fields{"command": command, "route": route.String()}).Debug("routing command")
	return route, nil
}

func (r *Router) CreateOrder(ctx context.Context, req models.CreateOrder) (Route, error) {
	route, err := r.route(wire.CommandOrderCreate)
	if err != nil {
		return route, err
	}
	if route == RouteStream {
		return route, r.stream.Send(wire.CommandOrderCreate, req)
	}
	_, err = r.requests.CreateOrder(ctx, req)
	return route, err
}

func (r *Router) UpdateOrder(ctx context.Context, req models.UpdateOrder) (Route, error) {
	route, err := r.route(wire.CommandOrderUpdate)
	if err != nil {
		return route, err
	}
	if route == RouteStream {
		return route, r.stream.Send(wire.CommandOrderUpdate, req)
	}
	_, err = r.requests.UpdateOrder(ctx, req)
	return route, err
}

func (r *Router) CancelOrder(ctx context.Context, req models.CancelOrder) (Route, error) {
	route, err := r.route(wire.CommandOrderCancel)
	if err != nil {
		return route, err
	}
	if route == RouteStream {
		return route, r.stream.Send(wire.CommandOrderCancel, req)
	}
	return route, r.requests.CancelOrder(ctx, req)
}

func (r *Router) UpdatePosition(ctx context.Context, req models.UpdatePosition) (Route, error) {
	route, err := r.route(wire.CommandPositionUpdate)
	if err != nil {
		return route, err
	}
	if route == RouteStream {
		return route, r.stream.Send(wire.CommandPositionUpdate, req)
	}
	_, err = r.requests.UpdatePosition(ctx, req)
	return route, err
}

func (r *Router) ClosePosition(ctx context.Context, req models.ClosePosition) (Route, error) {
	route, err := r.route(wire.CommandPositionClose)
	if err != nil {
		return route, err
	}
	if route == RouteStream {
		return route, r.stream.Send(wire.CommandPositionClose, req)
	}
	_, err = r.requests.ClosePosition(ctx, req)
	return route, err
}
