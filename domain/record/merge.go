package record

import (
	"encoding/json"

	"porosity/domain/core"
)

func (r Record) clone() Record {
	out := r
	out.IDs = append([]Identifier(nil), r.IDs...)
	out.Names = append([]string(nil), r.Names...)
	out.References = append([]json.RawMessage(nil), r.References...)
	out.SubSystems = append([]json.RawMessage(nil), r.SubSystems...)
	out.Preparation = make([]ProcessStep, len(r.Preparation))
	for i, s := range r.Preparation {
		out.Preparation[i] = ProcessStep{Name: s.Name, Details: append([]Detail(nil), s.Details...), Extra: s.Extra}
	}
	if r.Preparation == nil {
		out.Preparation = nil
	}
	out.Properties = append([]Property(nil), r.Properties...)
	return out
}

// WithSampleID replaces every identifier with a single "Sample ID".
func (r Record) WithSampleID(id core.SampleID) Record {
	out := r.clone()
	out.IDs = []Identifier{{Name: SampleIDName, Value: id.String()}}
	return out
}

// WithUID sets the record UID
func (r Record) WithUID(uid string) Record {
	out := r.clone()
	out.UID = uid
	return out
}

// WithStep appends a preparation step
func (r Record) WithStep(step ProcessStep) Record {
	out := r.clone()
	out.Preparation = append(out.Preparation, ProcessStep{Name: step.Name, Details: append([]Detail(nil), step.Details...), Extra: step.Extra})
	return out
}

// WithProperties merges props into the record by exact name: a property whose
// name already exists replaces the old one in place, new names are appended in
// the order given.
func (r Record) WithProperties(props ...Property) Record {
	out := r.clone()
	index := make(map[string]int, len(out.Properties))
	for i, p := range out.Properties {
		if _, seen := index[p.Name]; !seen {
			index[p.Name] = i
		}
	}
	for _, p := range props {
		if i, ok := index[p.Name]; ok {
			out.Properties[i] = p
			continue
		}
		index[p.Name] = len(out.Properties)
		out.Properties = append(out.Properties, p)
	}
	return out
}

// Merge overlays the properties of overlay onto base. Identity and provenance
// stay those of base.
func Merge(base, overlay Record) Record {
	return base.WithProperties(overlay.Properties...)
}

// Refine keeps the identity, names, references, preparation and unmodelled
// top-level members of r and only the properties named in allow, in their
// original order.
func Refine(r Record, allow []string) Record {
	allowed := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		allowed[name] = struct{}{}
	}

	src := r.clone()
	out := Record{
		Category:    src.Category,
		UID:         src.UID,
		IDs:         src.IDs,
		Names:       src.Names,
		References:  src.References,
		Preparation: src.Preparation,
		Properties:  []Property{},
		Extra:       src.Extra,
	}
	for _, p := range src.Properties {
		if _, ok := allowed[p.Name]; ok {
			out.Properties = append(out.Properties, p)
		}
	}
	return out
}
