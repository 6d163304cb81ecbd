package record

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Fields holds the JSON members of an object that its Go type does not model
// (conditions, tags, uncertainty, ...). They are written back unchanged, so a
// record survives a read, merge and write with everything it carried. Fields
// are never modified in place.
type Fields map[string]json.RawMessage

// Member names modelled by each type; everything else lands in Fields.
var (
	recordKeys     = jsonKeys(reflect.TypeOf(Record{}))
	identifierKeys = jsonKeys(reflect.TypeOf(Identifier{}))
	methodKeys     = jsonKeys(reflect.TypeOf(Method{}))
	propertyKeys   = jsonKeys(reflect.TypeOf(Property{}))
	detailKeys     = jsonKeys(reflect.TypeOf(Detail{}))
	stepKeys       = jsonKeys(reflect.TypeOf(ProcessStep{}))
)

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

// splitFields returns the members of the JSON object data that are not known.
func splitFields(data []byte, known map[string]bool) (Fields, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra Fields
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(Fields)
		}
		extra[k] = append(json.RawMessage(nil), v...)
	}
	return extra, nil
}

// appendTo adds the fields to the encoded object obj, after its own members and
// in name order. Names that collide with a known member are dropped.
func (f Fields) appendTo(obj []byte, known map[string]bool) ([]byte, error) {
	if len(f) == 0 {
		return obj, nil
	}
	names := make([]string, 0, len(f))
	for k, v := range f {
		if !known[k] && len(bytes.TrimSpace(v)) > 0 {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return obj, nil
	}
	sort.Strings(names)

	obj = bytes.TrimSpace(obj)
	var buf bytes.Buffer
	buf.Write(obj[:len(obj)-1])
	empty := len(bytes.TrimSpace(obj[1:len(obj)-1])) == 0
	for _, k := range names {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type (
	recordAlias     Record
	identifierAlias Identifier
	methodAlias     Method
	propertyAlias   Property
	detailAlias     Detail
	stepAlias       ProcessStep
)

// MarshalJSON writes the modelled members followed by the preserved ones.
func (r Record) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordAlias(r))
	if err != nil {
		return nil, err
	}
	return r.Extra.appendTo(data, recordKeys)
}

// UnmarshalJSON keeps members the Record type does not model in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var a recordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, recordKeys)
	if err != nil {
		return err
	}
	*r = Record(a)
	r.Extra = extra
	return nil
}

func (id Identifier) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(identifierAlias(id))
	if err != nil {
		return nil, err
	}
	return id.Extra.appendTo(data, identifierKeys)
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	var a identifierAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, identifierKeys)
	if err != nil {
		return err
	}
	*id = Identifier(a)
	id.Extra = extra
	return nil
}

func (m Method) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(methodAlias(m))
	if err != nil {
		return nil, err
	}
	return m.Extra.appendTo(data, methodKeys)
}

func (m *Method) UnmarshalJSON(data []byte) error {
	var a methodAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, methodKeys)
	if err != nil {
		return err
	}
	*m = Method(a)
	m.Extra = extra
	return nil
}

func (p Property) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(propertyAlias(p))
	if err != nil {
		return nil, err
	}
	return p.Extra.appendTo(data, propertyKeys)
}

func (p *Property) UnmarshalJSON(data []byte) error {
	var a propertyAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, propertyKeys)
	if err != nil {
		return err
	}
	*p = Property(a)
	p.Extra = extra
	return nil
}

func (d Detail) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(detailAlias(d))
	if err != nil {
		return nil, err
	}
	return d.Extra.appendTo(data, detailKeys)
}

func (d *Detail) UnmarshalJSON(data []byte) error {
	var a detailAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, detailKeys)
	if err != nil {
		return err
	}
	*d = Detail(a)
	d.Extra = extra
	return nil
}

func (s ProcessStep) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(stepAlias(s))
	if err != nil {
		return nil, err
	}
	return s.Extra.appendTo(data, stepKeys)
}

func (s *ProcessStep) UnmarshalJSON(data []byte) error {
	var a stepAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, stepKeys)
	if err != nil {
		return err
	}
	*s = ProcessStep(a)
	s.Extra = extra
	return nil
}
