package models

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Document is a raw profile document as delivered by the profile source.
type Document struct {
	ID     string
	Fields map[string]any
}

// NormalizeDocument returns a copy of the document fields with the id
// attached and workSite coerced to a sequence.
func NormalizeDocument(doc Document) map[string]any {
	out := make(map[string]any, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		out[k] = v
	}
	out["id"] = doc.ID
	out["workSite"] = NormalizeWorkSite(doc.Fields["workSite"])
	return out
}

// NormalizeWorkSite coerces a stored workSite value to a sequence. A scalar
// becomes a one-element sequence and a missing value an empty one.
func NormalizeWorkSite(v any) []string {
	if v == nil {
		return []string{}
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
	if ss, ok := v.([]string); ok {
		return append([]string{}, ss...)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if item == nil {
			continue
		}
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// DecodeProfile decodes a document from the given collection into a profile.
// The collection decides the variant; a stored userType is ignored.
func DecodeProfile(category Category, doc Document) (Profile, error) {
	if !category.Valid() {
		return Profile{}, fmt.Errorf("unknown category %q", category)
	}
	if doc.ID == "" {
		return Profile{}, fmt.Errorf("document without id")
	}

	fields := NormalizeDocument(doc)

	var p Profile
	if err := decode(fields, &p); err != nil {
		return Profile{}, fmt.Errorf("decode %s/%s: %w", category, doc.ID, err)
	}
	p.Category = category

	switch category {
	case CategoryContractor:
		var c Contractor
		if err := decode(fields, &c); err != nil {
			return Profile{}, fmt.Errorf("decode %s/%s: %w", category, doc.ID, err)
		}
		if c.WorkSite == nil {
			c.WorkSite = []string{}
		}
		p.Contractor = &c
	case CategoryRecruiter:
		var r Recruiter
		if err := decode(fields, &r); err != nil {
			return Profile{}, fmt.Errorf("decode %s/%s: %w", category, doc.ID, err)
		}
		p.Recruiter = &r
	}
	return p, nil
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(skillFromString),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// skillFromString accepts skills stored as bare names.
func skillFromString(from, to reflect.Type, data any) (any, error) {
	if to == reflect.TypeOf(Skill{}) && from.Kind() == reflect.String {
		return Skill{Skill: reflect.ValueOf(data).String()}, nil
	}
	return data, nil
}
