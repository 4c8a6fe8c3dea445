// Package quantize implements per-tensor quantization and dequantization
// : fp16 cast, int8 symmetric/asymmetric min-max, and int4
// symmetric. It also provides a calibration-dataset pass-through carried
// over from original_source/ml/inference/quantization.py (CalibrationDataset
// and Calibrate), which collects no activation statistics. No QAT
// (fake-quantization) helpers are provided. Applying a mode to a whole
// model is params.Model.Quantize.
package quantize

import (
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// Mode names a quantization scheme.
type Mode string

const (
	FP16 Mode = "fp16"
	Int8 Mode = "int8"
	Int4 Mode = "int4"
)

// Params carries the side information a dequantize call needs: the scale
// factor, and (for asymmetric int8) a nonzero zero point.
type Params struct {
	Scale     float32
	ZeroPoint int8
}

// QuantizeTensor quantizes t in mode, returning the quantized tensor (whose
// Data still holds float32 values, but every value is an integer in the
// dtype's range — the caller is responsible for tagging the serialization
// dtype) and the side parameters needed to dequantize it.
func QuantizeTensor(t *tensor.Tensor, mode Mode, symmetric bool) (*tensor.Tensor, Params, error) {
	switch mode {
	case FP16:
		return quantizeFP16(t), Params{}, nil
	case Int8:
		return quantizeInt8(t, symmetric)
	case Int4:
		return quantizeInt4(t)
	default:
		return nil, Params{}, kerrors.NewConfigError("quantization mode", string(mode))
	}
}

// DequantizeTensor is the inverse of QuantizeTensor.
func DequantizeTensor(q *tensor.Tensor, p Params, mode Mode) (*tensor.Tensor, error) {
	switch mode {
	case FP16:
		return dequantizeFP16(q), nil
	case Int8, Int4:
		out := tensor.New(q.Shape...)
		for i, v := range q.Data {
			out.Data[i] = (v - float32(p.ZeroPoint)) * p.Scale
		}
		return out, nil
	default:
		return nil, kerrors.NewConfigError("quantization mode", string(mode))
	}
}

// quantizeFP16 casts every value down to float16 and back up to float32,
// so the stored float32 equals cast_up(cast_down(t)) bit-for-bit.
func quantizeFP16(t *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(t.Shape...)
	for i, v := range t.Data {
		out.Data[i] = float16.Fromfloat32(v).Float32()
	}
	return out
}

func dequantizeFP16(q *tensor.Tensor) *tensor.Tensor {
	// The values are already float32-exact casts of float16; dequantize is
	// the identity promotion (cast_up of an already-rounded value).
	return q.Clone()
}

func quantizeInt8(t *tensor.Tensor, symmetric bool) (*tensor.Tensor, Params, error) {
	out := tensor.New(t.Shape...)
	if symmetric {
		var maxAbs float32
		for _, v := range t.Data {
			if a := float32(math.Abs(float64(v))); a > maxAbs {
				maxAbs = a
			}
		}
		scale := maxAbs / 127.0
		if scale == 0 {
			scale = 1.0
		}
		for i, v := range t.Data {
			out.Data[i] = clipRound(v/scale, -128, 127)
		}
		return out, Params{Scale: scale}, nil
	}

	min, max := t.Data[0], t.Data[0]
	for _, v := range t.Data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	scale := (max - min) / 255.0
	if scale == 0 {
		scale = 1.0
	}
	zp := clipRound(-min/scale, -128, 127)
	for i, v := range t.Data {
		out.Data[i] = clipRound(v/scale+zp, -128, 127)
	}
	return out, Params{Scale: scale, ZeroPoint: int8(zp)}, nil
}

func quantizeInt4(t *tensor.Tensor) (*tensor.Tensor, Params, error) {
	var maxAbs float32
	for _, v := range t.Data {
		if a := float32(math.Abs(float64(v))); a > maxAbs {
			maxAbs = a
		}
	}
	scale := maxAbs / 7.0
	if scale == 0 {
		scale = 1.0
	}
	out := tensor.New(t.Shape...)
	for i, v := range t.Data {
		out.Data[i] = clipRound(v/scale, -8, 7)
	}
	return out, Params{Scale: scale}, nil
}

func clipRound(v float32, lo, hi float64) float32 {
	r := math.Round(float64(v))
	if r < lo {
		r = lo
	}
	if r > hi {
		r = hi
	}
	return float32(r)
}

// CalibrationDataset holds forward-pass samples collected to derive
// per-layer quantization ranges ahead of a calibration-aware quantize call.
// The runtime does not currently collect intermediate activations (no
// component computes per-layer statistics beyond the final parameter
// values), so Calibrate is a structural pass-through: it runs every sample
// through runForward and returns without producing per-layer ranges.
type CalibrationDataset struct {
	Samples [][]float32
}

// Calibrate runs every sample in the dataset through runForward. It does
// not yet compute or return per-layer activation ranges.
func Calibrate(samples *CalibrationDataset, runForward func([]float32) error) error {
	for _, s := range samples.Samples {
		if err := runForward(s); err != nil {
			return errors.Wrap(err, "quantize: calibration forward pass failed")
		}
	}
	return nil
}
