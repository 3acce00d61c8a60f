package endpoints

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// strutsDocument is the route descriptor StrutsXMLExtractor reads: a
// small YAML document (action name -> class/method/view), standing in
// for the real struts.xml dialect this out-of-scope collaborator would
// otherwise parse (see the Open Question decision recorded for this
// package).
type strutsDocument struct {
	Actions []struct {
		Name   string `yaml:"name"`
		Class  string `yaml:"class"`
		Method string `yaml:"method"`
		View   string `yaml:"view"`
	} `yaml:"actions"`
}

// StrutsXMLExtractor reads the STRUTS_XML config path and derives route
// and view records from its action entries.
type StrutsXMLExtractor struct {
	Path string
}

// NewStrutsXMLExtractor creates an Extractor over the given descriptor
// path.
func NewStrutsXMLExtractor(path string) *StrutsXMLExtractor {
	return &StrutsXMLExtractor{Path: path}
}

func (e *StrutsXMLExtractor) ExtractEndpoints() ([]RouteRecord, []ViewRecord, error) {
	raw, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading struts descriptor %q: %w", e.Path, err)
	}

	var doc strutsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing struts descriptor %q: %w", e.Path, err)
	}

	routes := make([]RouteRecord, 0, len(doc.Actions))
	var views []ViewRecord
	for _, action := range doc.Actions {
		routes = append(routes, RouteRecord{Name: action.Name, Class: action.Class, Method: action.Method})
		if action.View != "" {
			views = append(views, ViewRecord{Route: action.Name, Path: action.View})
		}
	}
	return routes, views, nil
}

func (e *StrutsXMLExtractor) Dump(dir string) error {
	routes, views, err := e.ExtractEndpoints()
	if err != nil {
		return err
	}
	return Dump(dir, routes, views)
}
