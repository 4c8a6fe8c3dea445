// Package device implements the compute-target catalog: enumerate
// CPU/CUDA/Metal/WASM targets in preference order and select one by a
// preference token. Grounded on original_source/ml/utils/device_detector.py
// (detect_all_devices, get_device), translated from probing CUDA/MPS
// libraries via Python bindings into the Go equivalent of "no GPU binding is
// linked in, so only cpu (and wasm under a WASM build) are ever available" —
// the catalog's shape is preserved even though this runtime never actually
// drives a GPU.
package device

import (
	"runtime"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// Type identifies a compute target kind.
type Type string

const (
	CPU   Type = "cpu"
	CUDA  Type = "cuda"
	Metal Type = "metal"
	WASM  Type = "wasm"
)

// Info describes one enumerated device.
type Info struct {
	Type        Type
	ID          int
	Name        string
	TotalBytes  uint64 // 0 when not queryable
	FreeBytes   uint64 // 0 when not queryable
	Canonical   string // e.g. "cpu", "cuda:0", "mps", "wasm"
}

// MemoryString renders total/free memory in human units, or "unknown" when
// the device does not expose memory statistics.
func (i Info) MemoryString() string {
	if i.TotalBytes == 0 {
		return "unknown"
	}
	return humanize.Bytes(i.FreeBytes) + " free / " + humanize.Bytes(i.TotalBytes) + " total"
}

// canonicalString builds the canonical device string: "cpu", "cuda:<id>",
// "mps" (Metal), "wasm".
func canonicalString(t Type, id int) string {
	switch t {
	case CUDA:
		return "cuda:" + strconv.Itoa(id)
	case Metal:
		return "mps"
	case WASM:
		return "wasm"
	default:
		return "cpu"
	}
}

// DetectAll enumerates every available device in preference order: native
// GPU (CUDA or Metal) first, WASM if the host is running under a WASM
// runtime, CPU fallback always present last. This build links no GPU
// driver, so CUDA/Metal are never reported — only cpu, and wasm when
// GOOS=js/wasip1.
func DetectAll() []Info {
	var devices []Info
	if runtime.GOOS == "js" || runtime.GOARCH == "wasm" {
		devices = append(devices, Info{Type: WASM, Name: "wasm", Canonical: canonicalString(WASM, 0)})
	}
	devices = append(devices, Info{
		Type:      CPU,
		Name:      "cpu",
		Canonical: canonicalString(CPU, 0),
	})
	return devices
}

// Select returns the first device matching preference. "auto" returns the
// most-preferred available entry (DetectAll()[0]); an unrecognized token
// falls back to "cpu".
func Select(preference string) (Info, error) {
	all := DetectAll()
	if len(all) == 0 {
		return Info{}, kerrors.NewConfigError("device catalog", "empty")
	}

	switch preference {
	case "", "auto":
		return all[0], nil
	case "cpu":
		for _, d := range all {
			if d.Type == CPU {
				return d, nil
			}
		}
	case "cuda":
		for _, d := range all {
			if d.Type == CUDA {
				return d, nil
			}
		}
	case "metal":
		for _, d := range all {
			if d.Type == Metal {
				return d, nil
			}
		}
	case "wasm":
		for _, d := range all {
			if d.Type == WASM {
				return d, nil
			}
		}
	}

	// Unknown token, or a known token with no matching device: fall back
	// to cpu, which DetectAll always includes.
	for _, d := range all {
		if d.Type == CPU {
			return d, nil
		}
	}
	return Info{}, kerrors.NewConfigError("device preference", preference)
}
