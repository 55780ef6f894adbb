// nn/io_json.go
package nn

import (
	"encoding/json"
	"fmt"
	"os"
)

const modelLayoutTag = "gem_params_v1"

type paramJSON struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type modelJSON struct {
	Layout string      `json:"layout"`
	RunID  string      `json:"run_id,omitempty"`
	Params []paramJSON `json:"params"`
}

// SaveModelJSON writes the model parameters in canonical order.
func SaveModelJSON(path string, m Model, runID string) error {
	payload := modelJSON{Layout: modelLayoutTag, RunID: runID}
	for _, p := range m.Parameters() {
		payload.Params = append(payload.Params, paramJSON{
			Name:  p.Name,
			Shape: append([]int(nil), p.Value.Shape...),
			Data:  append([]float32(nil), p.Value.Data...),
		})
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadModelJSON copies saved values into m. Names, order and shapes must match.
func LoadModelJSON(path string, m Model) (runID string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var payload modelJSON
	if err := json.Unmarshal(b, &payload); err != nil {
		return "", err
	}
	if payload.Layout != modelLayoutTag {
		return "", fmt.Errorf("model %s: layout %q, want %q", path, payload.Layout, modelLayoutTag)
	}
	params := m.Parameters()
	if len(payload.Params) != len(params) {
		return "", fmt.Errorf("model %s: %d params saved, model has %d", path, len(payload.Params), len(params))
	}
	for i, p := range params {
		saved := payload.Params[i]
		if saved.Name != p.Name || !p.Value.SameShape(&Tensor{Shape: saved.Shape}) || len(saved.Data) != p.Value.Numel() {
			return "", fmt.Errorf("model %s: param %d is %s%v, model expects %s%v", path, i, saved.Name, saved.Shape, p.Name, p.Value.Shape)
		}
	}
	for i, p := range params {
		copy(p.Value.Data, payload.Params[i].Data)
	}
	return payload.RunID, nil
}
