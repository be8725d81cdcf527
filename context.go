package hfsm

import (
	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
)

// DeepCopy is the default context cloner. It copies exported fields
// recursively; contexts with unexported state need a custom cloner, see
// Builder.Cloner.
func DeepCopy[C any](ctx C) C {
	if c, ok := deepcopy.Copy(ctx).(C); ok {
		return c
	}

	return ctx
}

// Assign returns a reducer that merges the event payload into the context.
//
// A map[string]any is decoded on top of the context so only the keys it
// carries change; keys match json tags (or field names) and values are weakly
// typed, so {"count": "3"} sets an int field. Any other payload of type C
// replaces the context. A nil payload, or one that cannot be decoded, leaves
// the context unchanged.
func Assign[C any]() Reducer[C] {
	return func(ctx C, payload any) C {
		switch p := payload.(type) {
		case nil:
			return ctx
		case map[string]any:
		case C:
			return p
		}

		out := ctx

		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return ctx
		}

		if err := dec.Decode(payload); err != nil {
			return ctx
		}

		return out
	}
}
