package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
)

type Sample struct {
	Time  float64 `json:"time"`
	Theta float64 `json:"theta"`
	Omega float64 `json:"omega"`
}

type Data struct {
	Run     storage.RunMetadata `json:"run"`
	Class   linkage.Class       `json:"class"`
	Samples []Sample            `json:"samples"`
}

func NewData(meta storage.RunMetadata, result *sim.Result) Data {
	d := Data{
		Run:     meta,
		Class:   meta.Geometry.Grashof(),
		Samples: make([]Sample, len(result.States)),
	}
	for i, s := range result.States {
		d.Samples[i] = Sample{Time: result.Times[i], Theta: s[0]}
		if len(s) > 1 {
			d.Samples[i].Omega = s[1]
		}
	}
	return d
}

// WriteJSON writes the run and its samples as indented JSON.
func WriteJSON(w io.Writer, meta storage.RunMetadata, result *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewData(meta, result))
}
