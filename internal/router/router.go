// Package router decides which flow the user sees from the session state.
package router

import (
	"fmt"
	"sync"

	"tasker/internal/session"
)

// Flow is a group of views available in one session state.
type Flow int

const (
	// FlowAuth is shown while Unauthenticated: login and signup.
	FlowAuth Flow = iota

	// FlowMain is shown while Authenticated: task list and profile.
	FlowMain
)

func (f Flow) String() string {
	if f == FlowMain {
		return "main"
	}
	return "auth"
}

// View is a single screen.
type View int

const (
	ViewLogin View = iota
	ViewSignup
	ViewTasks
	ViewProfile
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewSignup:
		return "signup"
	case ViewTasks:
		return "tasks"
	case ViewProfile:
		return "profile"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// FlowFor maps a session state to its flow.
func FlowFor(s session.State) Flow {
	if s == session.Authenticated {
		return FlowMain
	}
	return FlowAuth
}

// Views returns the views of f; the first is the one shown on entry.
func (f Flow) Views() []View {
	if f == FlowMain {
		return []View{ViewTasks, ViewProfile}
	}
	return []View{ViewLogin, ViewSignup}
}

// Allows reports whether v belongs to f.
func (f Flow) Allows(v View) bool {
	for _, fv := range f.Views() {
		if fv == v {
			return true
		}
	}
	return false
}

// Router tracks the current flow and view. It re-evaluates the flow on
// every session transition; a flow change resets the view to the flow's
// entry view.
type Router struct {
	mu       sync.Mutex
	flow     Flow
	view     View
	onChange func(Flow, View)
}

// New evaluates sess once and follows its later transitions.
func New(sess *session.Manager) *Router {
	r := &Router{}
	r.enter(FlowFor(sess.State()))
	sess.Subscribe(r.sync)
	return r
}

// OnChange registers fn to run after the flow or view changes.
func (r *Router) OnChange(fn func(Flow, View)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Flow returns the current flow.
func (r *Router) Flow() Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flow
}

// View returns the current view.
func (r *Router) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Show switches to v. Views outside the current flow are refused.
func (r *Router) Show(v View) error {
	r.mu.Lock()
	if !r.flow.Allows(v) {
		flow := r.flow
		r.mu.Unlock()
		return fmt.Errorf("view %s is not available in the %s flow", v, flow)
	}
	changed := r.view != v
	r.view = v
	flow, fn := r.flow, r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn(flow, v)
	}
	return nil
}

// Next cycles to the next view of the current flow. The view is picked and
// entered under one lock, so a concurrent flow change cannot strand it.
func (r *Router) Next() View {
	r.mu.Lock()
	views := r.flow.Views()
	next := views[0]
	for i, v := range views {
		if v == r.view {
			next = views[(i+1)%len(views)]
			break
		}
	}
	changed := r.view != next
	r.view = next
	flow, fn := r.flow, r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn(flow, next)
	}
	return next
}

func (r *Router) sync(s session.State) {
	flow := FlowFor(s)
	r.mu.Lock()
	if flow == r.flow {
		r.mu.Unlock()
		return
	}
	r.enterLocked(flow)
	view, fn := r.view, r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(flow, view)
	}
}

func (r *Router) enter(f Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enterLocked(f)
}

func (r *Router) enterLocked(f Flow) {
	r.flow = f
	r.view = f.Views()[0]
}
