// Package nav names the views of the dashboard and the navigation side
// effects the controllers trigger.
package nav

import "sync"

type Route string

const (
	Home      Route = "/"
	About     Route = "/about"
	Contact   Route = "/contact"
	Signup    Route = "/signup"
	Login     Route = "/login"
	Dashboard Route = "/dashboard"
)

// Link is one entry of the navigation header.
type Link struct {
	Label string
	Route Route
}

// HeaderLinks returns the header entries in display order.
func HeaderLinks() []Link {
	return []Link{
		{Label: "Home", Route: Home},
		{Label: "About", Route: About},
		{Label: "Contact", Route: Contact},
		{Label: "Signup", Route: Signup},
		{Label: "Login", Route: Login},
	}
}

// Navigator performs a navigation side effect. Implementations must be safe
// to call from any goroutine: delayed redirects fire from timer goroutines.
type Navigator interface {
	Navigate(to Route)
}

// Func adapts a plain function to Navigator.
type Func func(to Route)

func (f Func) Navigate(to Route) { f(to) }

// Chan delivers navigation requests over a channel so an event loop can pick
// them up on its own goroutine. Requests are dropped when the buffer is full.
type Chan chan Route

func NewChan(size int) Chan { return make(Chan, size) }

func (c Chan) Navigate(to Route) {
	select {
	case c <- to:
	default:
	}
}

// Recorder remembers every navigation in order.
type Recorder struct {
	mu     sync.Mutex
	routes []Route
}

func (r *Recorder) Navigate(to Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, to)
}

func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

// Last returns the most recent route, or "" if none.
func (r *Recorder) Last() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}
