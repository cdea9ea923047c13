package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/mastercactapus/pcbmill/board"
	"github.com/mastercactapus/pcbmill/config"
	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machine/tinyg"
	"github.com/mastercactapus/pcbmill/machining"
)

// controller is the part of a TinyG the API drives.
type controller interface {
	machine.Machine
	machine.Prober
	Events() <-chan tinyg.Event
	Snapshot() tinyg.Snapshot
	Reset(ctx context.Context) error
	Clear(ctx context.Context) error
}

type api struct {
	http.Handler
	m   controller
	log *log.Logger
	sse *sse.Server

	// workpiece imports and optimizes a posted board.
	workpiece func(d *board.Description, mirror bool) (*board.Workpiece, error)
	leveling  config.Leveling

	// cycleMx serializes planning; the planner buffer is shared.
	cycleMx sync.Mutex
}

func newAPI(m controller, l *log.Logger, workpiece func(*board.Description, bool) (*board.Workpiece, error), lv config.Leveling) *api {
	r := mux.NewRouter()

	a := &api{
		Handler:   r,
		m:         m,
		log:       l,
		workpiece: workpiece,
		leveling:  lv,
		sse: sse.NewServer(&sse.Options{
			Logger: l.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		}),
	}

	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/cycle", a.cycle).Methods("POST")
	r.HandleFunc("/api/goto", a.goTo).Methods("POST")
	r.HandleFunc("/api/jog", a.jog).Methods("POST")
	r.HandleFunc("/api/spindle", a.spindle).Methods("POST")
	r.HandleFunc("/api/probe", a.probe).Methods("POST")
	r.HandleFunc("/api/{action:feedhold|resume|stop|reset|clear|home|park|origin}", a.action).Methods("POST")
	r.PathPrefix("/events/").Handler(a.sse)

	go a.pump(m.Events())

	return a
}

// Close disconnects all event stream clients.
func (a *api) Close() { a.sse.Shutdown() }

// pump forwards controller events to the SSE channels /events/status,
// /events/buffer and /events/cycle.
func (a *api) pump(events <-chan tinyg.Event) {
	for ev := range events {
		var v interface{}
		switch ev.Kind {
		case tinyg.EventStatus:
			v = ev.Status
		case tinyg.EventBuffer:
			v = ev.Buffer
		case tinyg.EventCycle:
			v = ev.Cycle
		default:
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			a.log.Error("marshal event", "kind", ev.Kind, "err", err)
			continue
		}
		a.sse.SendMessage("/events/"+ev.Kind.String(), sse.SimpleMessage(string(data)))
	}
}

func (a *api) fail(w http.ResponseWriter, op string, err error) {
	a.log.Error(op, "err", err)
	http.Error(w, err.Error(), errorStatus(err))
}

type badRequestError struct{ error }

func (e badRequestError) Unwrap() error { return e.error }

func badRequest(err error) error { return badRequestError{err} }

func errorStatus(err error) int {
	var bad badRequestError
	switch {
	case errors.Is(err, machine.ErrInvalidState), errors.Is(err, machine.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, machine.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, machine.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &bad), errors.Is(err, machining.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, a.m.Snapshot())
}

func (a *api) cycle(w http.ResponseWriter, req *http.Request) {
	d, err := board.ReadDescription(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mirror := req.FormValue("mirror") == "1"

	wp, err := a.workpiece(d, mirror)
	if err != nil {
		a.fail(w, "prepare workpiece", badRequest(err))
		return
	}

	a.cycleMx.Lock()
	defer a.cycleMx.Unlock()
	err = wp.Plan(a.m)
	if err != nil {
		a.fail(w, "plan cycle", err)
		return
	}
	id, err := a.m.ExecuteCycle(req.Context())
	if err != nil {
		a.fail(w, "execute cycle", err)
		return
	}
	writeJSON(w, tinyg.Cycle{ID: id, State: machine.StateExecuting})
}

type gotoRequest struct {
	X, Y, Z  float64
	Absolute bool `json:"absolute"`
	KeepZ    bool `json:"keepZ"`
}

func (a *api) goTo(w http.ResponseWriter, req *http.Request) {
	var r gotoRequest
	err := json.NewDecoder(req.Body).Decode(&r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = a.m.GoTo(req.Context(), coord.Point{X: r.X, Y: r.Y, Z: r.Z}, machine.MoveOptions{Absolute: r.Absolute, KeepZ: r.KeepZ})
	if err != nil {
		a.fail(w, "goto", err)
	}
}

type jogRequest struct {
	machine.Direction
	Step float64 `json:"step"`
}

func (a *api) jog(w http.ResponseWriter, req *http.Request) {
	var r jogRequest
	err := json.NewDecoder(req.Body).Decode(&r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = a.m.Jog(req.Context(), r.Direction, r.Step)
	if err != nil {
		a.fail(w, "jog", err)
	}
}

func (a *api) spindle(w http.ResponseWriter, req *http.Request) {
	on, err := strconv.ParseBool(req.FormValue("on"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid value for on: %v", err), http.StatusBadRequest)
		return
	}
	err = a.m.SetSpindle(req.Context(), on)
	if err != nil {
		a.fail(w, "spindle", err)
	}
}

type probeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// probe scans the surface from the current position and returns the
// points in workpiece coordinates, ready to be saved as a probe file.
func (a *api) probe(w http.ResponseWriter, req *http.Request) {
	var r probeRequest
	err := json.NewDecoder(req.Body).Decode(&r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := probeSurface(req.Context(), a.m, a.leveling, r.Width, r.Height)
	if err != nil {
		a.fail(w, "probe", err)
		return
	}
	writeJSON(w, points)
}

func (a *api) action(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	action := mux.Vars(req)["action"]

	var err error
	switch action {
	case "feedhold":
		err = a.m.Feedhold()
	case "resume":
		err = a.m.Resume()
	case "stop":
		err = a.m.Stop()
	case "reset":
		err = a.m.Reset(ctx)
	case "clear":
		err = a.m.Clear(ctx)
	case "home":
		err = a.m.HomingCycle(ctx)
	case "park":
		err = machine.GoToParkPosition(ctx, a.m)
	case "origin":
		err = machine.GoToDefaultOrigin(ctx, a.m)
	}
	if err != nil {
		a.fail(w, action, err)
		return
	}
	a.log.Info("api action", "action", action)
}
