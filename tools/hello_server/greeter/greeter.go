// Package greeter implements the greetings served by hello_server.
package greeter

import (
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("greeter")

// A Greeter produces greetings for things and people.
type Greeter struct {
	// Salutation precedes every greeting, e.g. "Hello".
	Salutation string
}

// New creates a new Greeter with the given salutation. An empty one defaults to "Hello".
func New(salutation string) *Greeter {
	if salutation == "" {
		salutation = "Hello"
	}
	return &Greeter{Salutation: salutation}
}

// World greets the world.
func (g *Greeter) World() string {
	return g.greet("World")
}

// Earth greets the Earth.
func (g *Greeter) Earth() string {
	return g.greet("Earth")
}

// Moon greets the Moon.
func (g *Greeter) Moon() string {
	return g.greet("Moon")
}

// Somebody greets a single named person.
func (g *Greeter) Somebody(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return g.World()
	}
	return g.greet(name)
}

// People greets several people at once, e.g. "Hello John, Paul and George!".
func (g *Greeter) People(names []string) string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	switch len(cleaned) {
	case 0:
		return g.World()
	case 1:
		return g.greet(cleaned[0])
	}
	return g.greet(strings.Join(cleaned[:len(cleaned)-1], ", ") + " and " + cleaned[len(cleaned)-1])
}

func (g *Greeter) greet(who string) string {
	return fmt.Sprintf("%s %s!", g.Salutation, who)
}

// ServeHTTP implements the http.Handler interface for the greeter.
func (g *Greeter) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		resp.Header().Set("Allow", "GET, HEAD")
		http.Error(resp, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := req.URL.Path
	var msg string
	switch {
	case path == "/":
		msg = g.World()
	case path == "/earth":
		msg = g.Earth()
	case path == "/moon":
		msg = g.Moon()
	case path == "/people":
		msg = g.People(req.URL.Query()["name"])
	case strings.HasPrefix(path, "/hello/") && !strings.Contains(path[len("/hello/"):], "/"):
		msg = g.Somebody(path[len("/hello/"):])
	default:
		http.NotFound(resp, req)
		return
	}
	log.Debug("%s %s -> %s", req.Method, path, msg)
	resp.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(resp, msg)
}
