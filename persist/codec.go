package persist

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec encodes snapshots for storage.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

var (
	// JSON stores snapshots as JSON. It is the default.
	JSON Codec = jsonCodec{}
	// YAML stores snapshots as YAML, which is easier to read in redis-cli.
	YAML Codec = yamlCodec{}
)
