// Command kolibrictl is a CLI demo over the inference runtime: it builds a
// small classifier/compressor in memory and exercises predict,
// quantize, compress-analyze, and export against it. Grounded on the
// teacher's cobra-based command style (cmd/gomlx_checkpoints).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/compress"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/export"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/classifier"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/compressor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/quantize"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kolibrictl",
		Short: "Inspect and exercise the kolibri inference runtime",
	}
	root.AddCommand(predictCmd(), quantizeCmd(), compressCmd(), exportCmd())
	return root
}

func predictCmd() *cobra.Command {
	var inputDim, numClasses int
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a classifier forward pass over a random batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := classifier.New("demo-classifier", classifier.Config{
				InputDim: inputDim, Hidden: []int{inputDim * 2}, NumClasses: numClasses, Head: classifier.MultiClass,
			})
			x := tensor.RandomInit(1, 1.0, 4, inputDim)
			out, err := m.Predict(x)
			if err != nil {
				return err
			}
			fmt.Println(m.Summary())
			fmt.Printf("predictions shape=%v\n", out.Shape)
			return nil
		},
	}
	cmd.Flags().IntVar(&inputDim, "input-dim", 8, "classifier input dimension")
	cmd.Flags().IntVar(&numClasses, "classes", 2, "number of output classes")
	return cmd
}

func quantizeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Quantize a demo classifier and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := classifier.New("demo-classifier", classifier.Config{InputDim: 8, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
			if err := m.Quantize(quantize.Mode(mode), true); err != nil {
				return err
			}
			fmt.Println(m.Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "int8", "quantization mode: fp16|int8|int4")
	return cmd
}

func compressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress [file]",
		Short: "Analyze a file's entropy and recommend a compression strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m := compressor.New("demo-compressor", compressor.Config{ContextSize: 64, Hidden: 64, Layers: 2})
			analysis := compress.Analyze(m, data)
			fmt.Printf("size=%d entropy=%.3f bits/byte recommended=%s estimated_ratio=%.2f\n",
				analysis.OriginalSize, analysis.Entropy, analysis.RecommendedAlgorithm, analysis.Ratio)
			return nil
		},
	}
	return cmd
}

func exportCmd() *cobra.Command {
	var dir, target string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a demo classifier to a C or WASM bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := classifier.New("demo-classifier", classifier.Config{InputDim: 8, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
			switch target {
			case "c":
				return export.ExportC(m.Model, dir)
			case "wasm":
				return export.ExportWASM(m.Model, dir)
			default:
				return fmt.Errorf("unknown export target %q (want c|wasm)", target)
			}
		},
	}
	cmd.Flags().StringVar(&dir, "out", "./export-out", "output directory")
	cmd.Flags().StringVar(&target, "target", "c", "export target: c|wasm")
	return cmd
}
