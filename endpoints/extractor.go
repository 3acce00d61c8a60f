// Package endpoints carries the endpoint-extractor plug-in contract
// spec.md §6 names as an external collaborator: reading a web
// framework's route descriptor (struts.xml, view templates) to produce
// the route/view records the graph-DB bulk load consumes. The AST-level
// source/sink detection that actually drives taint analysis lives in
// package sourcesink; this package is deliberately thin.
package endpoints

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// RouteRecord names one configured action route: the URL/action name
// mapped to the class and method that handles it.
type RouteRecord struct {
	Name   string `json:"name" yaml:"name"`
	Class  string `json:"class" yaml:"class"`
	Method string `json:"method" yaml:"method"`
}

// ViewRecord names one view template associated with a route, for
// taint flows that terminate in a rendered response.
type ViewRecord struct {
	Route string `json:"route" yaml:"route"`
	Path  string `json:"path" yaml:"path"`
}

// Extractor discovers a web framework's routes and views from its
// configuration, independent of the Java source the rest of the
// pipeline parses.
type Extractor interface {
	ExtractEndpoints() (routeData []RouteRecord, viewData []ViewRecord, err error)
	Dump(dir string) error
}

// Dump writes routeData and viewData as routeData.json/viewData.json
// into dir, the shared implementation every Extractor delegates to.
func Dump(dir string, routeData []RouteRecord, viewData []ViewRecord) error {
	if err := writeJSON(filepath.Join(dir, "routeData.json"), routeData); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "viewData.json"), viewData)
}

func writeJSON(path string, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
