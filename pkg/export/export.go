// Package export implements the portable-artifact writers: a C header/
// source bundle, a WASM bundle (model.json + weights.bin + JS loader + HTML
// demo), and manifest stubs for the ONNX/CoreML/TFLite targets this
// runtime does not natively produce. Grounded on the binary weights layout
// (itself grounded on original_source/ml/models/base_model.py's save()),
// following gomlx's cmd/gomlx_checkpoints convention of generating small,
// deterministic artifact files.
package export

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// cIdentifier replaces '.' and '-' with '_' so a parameter name is safe to
// use as a C identifier.
func cIdentifier(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return r.Replace(name)
}

// ExportC writes model_weights.h, model_config.h, model_inference.h, and
// model_inference.c into dir.
func ExportC(m *params.Model, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerrors.NewIOError(dir, err)
	}

	if err := writeFile(filepath.Join(dir, "model_weights.h"), cWeightsHeader(m)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "model_config.h"), cConfigHeader(m)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "model_inference.h"), cInferenceHeader(m)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "model_inference.c"), cInferenceSource(m)); err != nil {
		return err
	}

	m.State = params.StateExported
	return nil
}

func cWeightsHeader(m *params.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/* generated: static parameter arrays for %s */\n", m.Metadata.Name)
	fmt.Fprintf(&b, "#ifndef KOLIBRI_MODEL_WEIGHTS_H\n#define KOLIBRI_MODEL_WEIGHTS_H\n\n")

	m.Params.Each(func(name string, t *tensor.Tensor, dtype string) {
		ident := cIdentifier(name)
		switch dtype {
		case "int8", "int4":
			fmt.Fprintf(&b, "static const signed char %s[%d] = {", ident, len(t.Data))
			for i, v := range t.Data {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%d", int8(v))
			}
			b.WriteString("};\n")
			if scale, ok := m.GetBuffer(name + "_scale"); ok {
				fmt.Fprintf(&b, "static const float %s_scale = %ff;\n", ident, scale.Data[0])
			}
		default:
			fmt.Fprintf(&b, "static const float %s[%d] = {", ident, len(t.Data))
			for i, v := range t.Data {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%ff", v)
			}
			b.WriteString("};\n")
		}
	})

	b.WriteString("\n#endif\n")
	return b.String()
}

func cConfigHeader(m *params.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#ifndef KOLIBRI_MODEL_CONFIG_H\n#define KOLIBRI_MODEL_CONFIG_H\n\n")
	fmt.Fprintf(&b, "#define MODEL_NUM_PARAMETERS %d\n", m.NumParameters())
	fmt.Fprintf(&b, "#define MODEL_QUANTIZED %d\n", boolToInt(m.Metadata.Quantization != "fp32" && m.Metadata.Quantization != ""))
	fmt.Fprintf(&b, "#define MODEL_INPUT_RANK %d\n", len(m.Metadata.InputShape))
	for i, d := range m.Metadata.InputShape {
		fmt.Fprintf(&b, "#define MODEL_INPUT_DIM_%d %d\n", i, d)
	}
	fmt.Fprintf(&b, "#define MODEL_OUTPUT_RANK %d\n", len(m.Metadata.OutputShape))
	for i, d := range m.Metadata.OutputShape {
		fmt.Fprintf(&b, "#define MODEL_OUTPUT_DIM_%d %d\n", i, d)
	}
	b.WriteString("\n#endif\n")
	return b.String()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func cInferenceHeader(m *params.Model) string {
	return `#ifndef KOLIBRI_MODEL_INFERENCE_H
#define KOLIBRI_MODEL_INFERENCE_H

int model_init(void);
int model_predict(const float *input, int input_len, float *output, int output_len);
void model_cleanup(void);

#endif
`
}

func cInferenceSource(m *params.Model) string {
	return fmt.Sprintf(`#include "model_inference.h"
#include "model_config.h"
#include "model_weights.h"

/* %s: stub init/predict/cleanup — the portable forward pass itself is not
 * regenerated here; this bundle exposes the weight layout a native runtime
 * can load against. */

int model_init(void) {
    return 0;
}

int model_predict(const float *input, int input_len, float *output, int output_len) {
    (void)input;
    (void)input_len;
    (void)output;
    (void)output_len;
    return 0;
}

void model_cleanup(void) {
}
`, m.Metadata.Name)
}

// ExportWASM writes model.json, weights.bin, a JS loader, and an HTML demo
// page into dir.
func ExportWASM(m *params.Model, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerrors.NewIOError(dir, err)
	}

	header := struct {
		NumParameters  int                `json:"num_parameters"`
		ParameterNames []string           `json:"parameter_names"`
		Shapes         map[string][]int   `json:"shapes"`
		DTypes         map[string]string  `json:"dtypes"`
	}{
		Shapes: make(map[string][]int),
		DTypes: make(map[string]string),
	}
	var weights []byte
	m.Params.Each(func(name string, t *tensor.Tensor, dtype string) {
		header.ParameterNames = append(header.ParameterNames, name)
		header.Shapes[name] = t.Shape
		header.DTypes[name] = dtype
		header.NumParameters += len(t.Data)
		for _, v := range t.Data {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			weights = append(weights, buf[:]...)
		}
	})

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	headerLen := len(headerJSON)

	modelJSON, err := json.MarshalIndent(struct {
		Metadata params.ModelMetadata `json:"metadata"`
		Header   json.RawMessage      `json:"header"`
		HeaderLen int                 `json:"header_len"`
	}{Metadata: m.Metadata, Header: headerJSON, HeaderLen: headerLen}, "", "  ")
	if err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, "model.json"), string(modelJSON)); err != nil {
		return err
	}

	weightsPath := filepath.Join(dir, "weights.bin")
	if err := os.WriteFile(weightsPath, weights, 0o644); err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}

	if err := writeFile(filepath.Join(dir, "loader.js"), wasmLoaderJS()); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "demo.html"), wasmDemoHTML(m.Metadata.Name)); err != nil {
		return err
	}

	m.State = params.StateExported
	return nil
}

func wasmLoaderJS() string {
	return `// Parses model.json + weights.bin and exposes load()/predict().
export async function load(jsonUrl, weightsUrl) {
  const model = await (await fetch(jsonUrl)).json();
  const weights = new Float32Array(await (await fetch(weightsUrl)).arrayBuffer());
  return {
    metadata: model.metadata,
    predict(input) {
      throw new Error("native forward pass not bundled; load weights into a matching runtime");
    },
    weights,
  };
}
`
}

func wasmDemoHTML(name string) string {
	return fmt.Sprintf(`<!doctype html>
<html>
  <head><title>%s — model demo</title></head>
  <body>
    <h1>%s</h1>
    <script type="module">
      import { load } from "./loader.js";
      load("./model.json", "./weights.bin").then((m) => console.log(m.metadata));
    </script>
  </body>
</html>
`, name, name)
}

// ExportONNXManifest writes a JSON manifest describing the model's
// input/output names and shapes, as a stand-in for a true ONNX graph
// export — this runtime does not carry an ONNX graph builder (see
// DESIGN.md), so the manifest documents the contract an external converter
// would need to honor.
func ExportONNXManifest(m *params.Model, path string) error {
	manifest := struct {
		Name        string `json:"name"`
		InputShape  []int  `json:"input_shape"`
		OutputShape []int  `json:"output_shape"`
		InputNames  []string `json:"input_names"`
		OutputNames []string `json:"output_names"`
	}{
		Name:        m.Metadata.Name,
		InputShape:  m.Metadata.InputShape,
		OutputShape: m.Metadata.OutputShape,
		InputNames:  []string{"input"},
		OutputNames: []string{"output"},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.NewIOError(path, err)
	}
	return nil
}

// ExportCoreMLStub and ExportTFLiteStub write minimal JSON manifests
// recording the shape/dtype contract a real mlmodel/tflite converter would
// need; neither target has an in-repo encoder, so no binary graph is
// produced (see DESIGN.md).
func ExportCoreMLStub(m *params.Model, path string) error {
	return writeManifest(m, path, "coreml")
}

func ExportTFLiteStub(m *params.Model, path string) error {
	return writeManifest(m, path, "tflite")
}

func writeManifest(m *params.Model, path, target string) error {
	manifest := struct {
		Target      string `json:"target"`
		Name        string `json:"name"`
		InputShape  []int  `json:"input_shape"`
		OutputShape []int  `json:"output_shape"`
	}{Target: target, Name: m.Metadata.Name, InputShape: m.Metadata.InputShape, OutputShape: m.Metadata.OutputShape}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.NewIOError(path, err)
	}
	return nil
}

func writeFile(path, contents string) error {
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return kerrors.NewIOError(path, err)
	}
	return nil
}
