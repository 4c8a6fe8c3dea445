package params

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/quantize"
)

// ModelState is the lifecycle stage of a Model.
type ModelState string

const (
	StateUninitialized ModelState = "UNINITIALIZED"
	StateInitialized   ModelState = "INITIALIZED"
	StateTraining      ModelState = "TRAINING"
	StateTrained       ModelState = "TRAINED"
	StateExported      ModelState = "EXPORTED"
)

// Variant names the model family a Model belongs to, for callers that branch
// on type instead of holding a typed reference.
type Variant string

const (
	VariantTransformer Variant = "transformer"
	VariantCompressor  Variant = "compressor"
	VariantEncoder     Variant = "encoder"
	VariantClassifier  Variant = "classifier"
	VariantGenerator   Variant = "generator"
)

// ModelMetadata carries a model's descriptive fields: identity, shape
// contract, parameter count, placement, and quantization tag.
type ModelMetadata struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	Architecture   Variant           `json:"architecture"`
	InputShape     []int             `json:"input_shape"`
	OutputShape    []int             `json:"output_shape"`
	ParameterCount int               `json:"num_parameters"`
	Device         string            `json:"device"`
	Quantization   string            `json:"quantization"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Model is the capability trait every architecture embeds: a named,
// ordered ParameterMap/BufferMap pair plus metadata and lifecycle state.
// Callers that need the `{forward, input_shape, output_shape, parameters,
// metadata}` trait get it by embedding *Model and adding Forward.
type Model struct {
	Params   ParameterMap
	Buffers  BufferMap
	Metadata ModelMetadata
	State    ModelState
}

// NewModel returns a Model in the UNINITIALIZED state with empty maps.
func NewModel(meta ModelMetadata) *Model {
	return &Model{
		Params:   NewParameterMap(),
		Buffers:  NewBufferMap(),
		Metadata: meta,
		State:    StateUninitialized,
	}
}

// MarkInitialized transitions UNINITIALIZED → INITIALIZED once the
// constructor has populated every parameter. Called by each architecture's
// constructor as its last step.
func (m *Model) MarkInitialized() {
	m.State = StateInitialized
	m.Metadata.ParameterCount = m.Params.NumElements()
}

// GetParameter returns the named parameter tensor.
func (m *Model) GetParameter(name string) (*tensor.Tensor, bool) { return m.Params.Get(name) }

// SetParameter stores t under name.
func (m *Model) SetParameter(name string, t *tensor.Tensor) {
	m.Params.Set(name, t)
	m.Metadata.ParameterCount = m.Params.NumElements()
}

// RequireParameter returns the named parameter or a MissingParameter error:
// a missing required parameter is always a fatal configuration error.
func (m *Model) RequireParameter(name string) (*tensor.Tensor, error) {
	t, ok := m.Params.Get(name)
	if !ok {
		return nil, kerrors.NewMissingParameter(name)
	}
	return t, nil
}

// GetBuffer returns the named buffer tensor.
func (m *Model) GetBuffer(name string) (*tensor.Tensor, bool) { return m.Buffers.Get(name) }

// SetBuffer stores t under name in the buffer map.
func (m *Model) SetBuffer(name string, t *tensor.Tensor) { m.Buffers.Set(name, t) }

// NumParameters returns Σ product(shape(p)) across every stored parameter.
func (m *Model) NumParameters() int { return m.Params.NumElements() }

// artifactHeader is the JSON header prefixed to a saved weights file: a
// 4-byte little-endian length followed by this struct marshaled as UTF-8
// JSON, followed by the concatenated raw parameter payloads.
type artifactHeader struct {
	NumParameters int                 `json:"num_parameters"`
	ParameterNames []string           `json:"parameter_names"`
	Shapes         map[string][]int   `json:"shapes"`
	DTypes         map[string]string  `json:"dtypes"`
}

// Save writes the binary weights artifact to weightsPath and the JSON
// metadata sidecar to weightsPath+".meta.json".
func (m *Model) Save(weightsPath string) error {
	header := artifactHeader{
		NumParameters: m.Params.NumElements(),
		Shapes:        make(map[string][]int, m.Params.Len()),
		DTypes:        make(map[string]string, m.Params.Len()),
	}
	m.Params.Each(func(name string, t *tensor.Tensor, dtype string) {
		header.ParameterNames = append(header.ParameterNames, name)
		header.Shapes[name] = t.Shape
		header.DTypes[name] = dtype
	})

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "params: marshal artifact header")
	}

	f, err := os.Create(weightsPath)
	if err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}
	defer f.Close()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(headerJSON)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}
	if _, err := f.Write(headerJSON); err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}

	var writeErr error
	m.Params.Each(func(name string, t *tensor.Tensor, dtype string) {
		if writeErr != nil {
			return
		}
		writeErr = writePayload(f, t, dtype)
	})
	if writeErr != nil {
		return kerrors.NewIOError(weightsPath, writeErr)
	}

	metaPath := weightsPath + ".meta.json"
	metaJSON, err := json.MarshalIndent(m.Metadata, "", "  ")
	if err != nil {
		return errors.Wrap(err, "params: marshal metadata sidecar")
	}
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return kerrors.NewIOError(metaPath, err)
	}
	return nil
}

// Load reverses Save: it reads weightsPath and weightsPath+".meta.json",
// replacing m's parameters and metadata in place. The caller's existing
// parameter shapes (populated by the architecture's constructor) are the
// expected shapes; a mismatch against the header is a fatal ShapeError.
func (m *Model) Load(weightsPath string) error {
	f, err := os.Open(weightsPath)
	if err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}
	defer f.Close()

	var lenBuf [4]byte
	if _, err := readFull(f, lenBuf[:]); err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}
	headerLen := binary.LittleEndian.Uint32(lenBuf[:])

	headerJSON := make([]byte, headerLen)
	if _, err := readFull(f, headerJSON); err != nil {
		return kerrors.NewIOError(weightsPath, err)
	}

	var header artifactHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return errors.Wrap(err, "params: unmarshal artifact header")
	}

	fresh := NewParameterMap()
	for _, name := range header.ParameterNames {
		shape := header.Shapes[name]
		dtype := header.DTypes[name]
		t := tensor.New(shape...)
		if err := readPayload(f, t, dtype); err != nil {
			return kerrors.NewIOError(weightsPath, err)
		}
		if existing, ok := m.Params.Get(name); ok {
			if !tensor.EqualShape(existing.Shape, shape) {
				return kerrors.NewShapeError("Model.Load:"+name, existing.Shape, shape)
			}
		}
		fresh.setDType(name, t, dtype)
	}
	m.Params = fresh

	metaPath := weightsPath + ".meta.json"
	metaJSON, err := os.ReadFile(metaPath)
	if err != nil {
		return kerrors.NewIOError(metaPath, err)
	}
	var meta ModelMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return errors.Wrap(err, "params: unmarshal metadata sidecar")
	}
	m.Metadata = meta
	m.State = StateTrained
	return nil
}

// Quantize replaces every float parameter in place with its quantized
// representation and records per-parameter "{name}_scale" / "{name}_zero"
// buffers.
func (m *Model) Quantize(mode quantize.Mode, symmetric bool) error {
	names := m.Params.Names()
	for _, name := range names {
		t, _ := m.Params.Get(name)
		q, p, err := quantize.QuantizeTensor(t, mode, symmetric)
		if err != nil {
			return err
		}
		m.Params.setDType(name, q, string(mode))
		m.Buffers.Set(name+"_scale", tensor.FromSlice([]float32{p.Scale}, 1))
		if p.ZeroPoint != 0 {
			m.Buffers.Set(name+"_zero", tensor.FromSlice([]float32{float32(p.ZeroPoint)}, 1))
		}
	}
	m.Metadata.Quantization = string(mode)
	return nil
}

// Summary returns a human-readable diagnostic description. No stability
// contract on its exact formatting.
func (m *Model) Summary() string {
	s := fmt.Sprintf("Model %q (%s)\n  state: %s\n  device: %s\n  quantization: %s\n  parameters: %d across %d tensors\n",
		m.Metadata.Name, m.Metadata.Architecture, m.State, m.Metadata.Device, m.Metadata.Quantization,
		m.Params.NumElements(), m.Params.Len())
	m.Params.Each(func(name string, t *tensor.Tensor, dtype string) {
		s += fmt.Sprintf("    %-32s shape=%v dtype=%s\n", name, t.Shape, dtype)
	})
	return s
}

func writePayload(f *os.File, t *tensor.Tensor, dtype string) error {
	switch dtype {
	case "fp32", "":
		buf := make([]byte, 4*len(t.Data))
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		_, err := f.Write(buf)
		return err
	case "int8", "int4":
		buf := make([]byte, len(t.Data))
		for i, v := range t.Data {
			buf[i] = byte(int8(v))
		}
		_, err := f.Write(buf)
		return err
	case "fp16":
		buf := make([]byte, 4*len(t.Data))
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		_, err := f.Write(buf)
		return err
	default:
		return fmt.Errorf("params: unknown dtype %q", dtype)
	}
}

func readPayload(f *os.File, t *tensor.Tensor, dtype string) error {
	switch dtype {
	case "fp32", "", "fp16":
		buf := make([]byte, 4*len(t.Data))
		if _, err := readFull(f, buf); err != nil {
			return err
		}
		for i := range t.Data {
			t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return nil
	case "int8", "int4":
		buf := make([]byte, len(t.Data))
		if _, err := readFull(f, buf); err != nil {
			return err
		}
		for i, b := range buf {
			t.Data[i] = float32(int8(b))
		}
		return nil
	default:
		return fmt.Errorf("params: unknown dtype %q", dtype)
	}
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	if total != len(buf) {
		return total, fmt.Errorf("params: short read: got %d want %d", total, len(buf))
	}
	return total, nil
}
