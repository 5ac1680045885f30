package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/lightbench/chopper/generichttp"
	"github.com/lightbench/chopper/mc2000"
	"github.com/lightbench/chopper/server/middleware/locker"
)

// ObjSetup holds the typical triplet of args for a New<device> call.
// Serial need not be populated in the config file if the chopper sits
// behind a terminal server.
type ObjSetup struct {
	// Addr holds the network or filesystem address of the remote device,
	// e.g. 192.168.100.123:2006 for a device connected to port 6
	// on a digi portserver, or /dev/ttyUSB0 for an RS232 device on a cable
	Addr string `yaml:"Addr"`

	// Endpoint is the stem the routes from this device will be served on,
	// ex. Endpoint="/omc/chopper" produces routes of /omc/chopper/phase, etc.
	Endpoint string `yaml:"Endpoint"`

	// Serial determines if the connection is serial/RS232 (true) or TCP (false)
	Serial bool `yaml:"Serial"`

	// Type is the "type" of the object, e.g. mc2000
	Type string `yaml:"Type"`
}

// Config holds the initialization parameters for the server,
// populated from the YAML config file.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock replaces every node with an in-memory mock
	Mock bool `yaml:"Mock"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// BuildMux constructs a chi mux with one submux per configured node.
// The mux serves a special route, /endpoints, which returns a map of
// node stems to their routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, node := range c.Nodes {
		var httper generichttp.HTTPer
		typ := strings.ToLower(node.Type)
		switch typ {
		case "mc2000", "chopper":
			var dev mc2000.Chopper
			if c.Mock {
				dev = mc2000.NewMockMC2000(node.Addr, node.Serial)
			} else {
				ch := mc2000.New(node.Addr, node.Serial)
				if err := ch.Connect(); err != nil {
					log.Fatalf("%s: %v", node.Addr, err)
				}
				dev = ch
			}
			httper = mc2000.NewHTTPWrapper(dev)

		default:
			log.Fatal("type ", typ, " not understood")
		}

		// prepare the URL, "omc/chopper/" => "/omc/chopper"
		hndlS := generichttp.SubMuxSanitize(node.Endpoint)
		supergraph[hndlS] = httper.RT().Endpoints()

		// add a lock interface for this node
		lock := locker.New()
		locker.Inject(httper, lock)

		r := chi.NewRouter()
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
