package routefile

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/zalando/traject/dispatch"
	"github.com/zalando/traject/pathtrie"
	"github.com/zalando/traject/routing"
)

type documentJSON struct {
	App       string            `json:"app"`
	ID        string            `json:"id"`
	Variables map[string]any    `json:"variables,omitempty"`
	Body      map[string]any    `json:"body,omitempty"`
	Links     map[string]string `json:"links"`
}

// RegisterViews registers the JSON views of the documents: the default
// view with the document itself, and the "links" view with the links
// only.
func RegisterViews(r *dispatch.Registry) error {
	t := reflect.TypeFor[*Document]()
	if err := r.Register(dispatch.View{Model: t, Render: renderDocument}); err != nil {
		return err
	}

	return r.Register(dispatch.View{Model: t, Name: "links", Render: renderLinks})
}

// links returns the self link of the document, and the links of the other
// documents of the same application that can be generated without
// variables.
func links(ctx *routing.Context, d *Document) (map[string]string, error) {
	self, err := ctx.Link(d, "")
	if err != nil {
		return nil, err
	}

	l := map[string]string{"self": self}
	for _, p := range d.related {
		if p.ID == d.ID {
			continue
		}

		rl, err := ctx.Link(&Document{App: d.App, ID: p.ID}, "")
		var lerr *pathtrie.LinkError
		switch {
		case errors.As(err, &lerr):
			continue
		case err != nil:
			return nil, err
		}

		l[p.ID] = rl
	}

	return l, nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func renderDocument(ctx *routing.Context, w http.ResponseWriter, m any) error {
	d := m.(*Document)
	l, err := links(ctx, d)
	if err != nil {
		return err
	}

	return writeJSON(w, documentJSON{
		App:       d.App,
		ID:        d.ID,
		Variables: d.Variables,
		Body:      d.Body,
		Links:     l,
	})
}

func renderLinks(ctx *routing.Context, w http.ResponseWriter, m any) error {
	l, err := links(ctx, m.(*Document))
	if err != nil {
		return err
	}

	return writeJSON(w, l)
}
