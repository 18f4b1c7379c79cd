package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYaml []byte

// jsonCompatible turns the map[any]any values yaml may produce into
// map[string]any so the document can be encoded as json.
func jsonCompatible(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = jsonCompatible(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = jsonCompatible(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = jsonCompatible(item)
		}
		return v
	default:
		return v
	}
}

var openapiJson = sync.OnceValues(func() ([]byte, error) {
	var doc any
	err := yaml.Unmarshal(openapiYaml, &doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonCompatible(doc))
})

func handleOpenapi(w http.ResponseWriter, _ *http.Request) {
	body, err := openapiJson()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load api document", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(body)
}
