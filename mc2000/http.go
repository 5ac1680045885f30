package mc2000

import (
	"encoding/json"
	"net/http"

	"github.com/lightbench/chopper/generichttp"
	"github.com/lightbench/chopper/generichttp/ascii"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// RT() feeds the route table to a mux; see cmd/choppersrv.
type HTTPWrapper struct {
	// Chopper is the underlying device that is wrapped
	Chopper

	// RouteTable maps method-path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(c Chopper) HTTPWrapper {
	w := HTTPWrapper{Chopper: c}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/internal-frequency"}:  generichttp.GetInt(c.GetInternalFrequency),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/internal-frequency"}: generichttp.SetInt(c.SetInternalFrequency),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/blade-type"}:          generichttp.GetString(c.GetBladeType),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/blade-type"}:         generichttp.SetString(c.SetBladeType),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/reference-mode"}:      generichttp.GetString(c.GetReferenceMode),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/reference-mode"}:     generichttp.SetString(c.SetReferenceMode),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/phase"}:               generichttp.GetInt(c.GetPhase),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/phase"}:              generichttp.SetInt(c.SetPhase),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/enabled"}:             generichttp.GetBool(c.GetEnabled),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/enabled"}:            generichttp.SetBool(c.SetEnabled),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/external-frequency"}:  generichttp.GetInt(c.GetExternalFrequency),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/id"}:                  generichttp.GetString(c.Identification),
	}
	w.RouteTable = rt
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}] = w.Status
	if rc, ok := c.(ascii.RawCommunicator); ok {
		ascii.InjectRawComm(rt, rc)
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// Status reads every property from the chopper and sends them back as JSON
func (h HTTPWrapper) Status(w http.ResponseWriter, r *http.Request) {
	s, err := h.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
