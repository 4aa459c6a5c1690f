package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/oisee/x86emu/pkg/batch"
	"github.com/oisee/x86emu/pkg/bios"
	"github.com/oisee/x86emu/pkg/cpu"
	"github.com/oisee/x86emu/pkg/fuzz"
	"github.com/oisee/x86emu/pkg/inst"
	"github.com/oisee/x86emu/pkg/ioport"
	"github.com/oisee/x86emu/pkg/loader"
	"github.com/spf13/cobra"
)

func main() {
	var quiet bool

	rootCmd := &cobra.Command{
		Use:   "x86emu <filename>",
		Short: "A minimal 32-bit x86 instruction-set emulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], quiet)
		},
	}
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the per-instruction trace line")

	rootCmd.AddCommand(newDisasmCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newFuzzCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFile loads and runs a single boot image, printing a trace line per
// instruction (unless quiet) and a final register dump.
func runFile(path string, quiet bool) error {
	m := cpu.NewBootMachine()
	m.SetBIOS(bios.NewVideo())
	m.SetIO(ioport.NewSerial())

	if err := loader.Load(path, m); err != nil {
		return err
	}

	for {
		eip := m.EIP()
		if eip == 0 {
			fmt.Println("end of program.")
			break
		}

		code, codeErr := m.ReadByte(eip)
		if !quiet && codeErr == nil {
			fmt.Printf("EIP = %08X, Code = %02X\n", eip, code)
		}

		halted, err := m.Step()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Println(m.Dump())
			return err
		}
		if halted {
			if m.EIP() == 0 {
				fmt.Println("end of program.")
			}
			break
		}
	}

	fmt.Println(m.Dump())
	return nil
}

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <filename>",
		Short: "Statically disassemble a boot image without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(data) > loader.MaxImageSize {
				data = data[:loader.MaxImageSize]
			}
			off := 0
			for off < len(data) {
				text, n := inst.Disassemble(data[off:])
				if n <= 0 {
					break
				}
				fmt.Printf("%08X: %s\n", cpu.LoadAddress+uint32(off), text)
				off += n
			}
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	var workers int
	var stepLimit int
	var verbose bool
	var checkpoint string

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Run every boot image in a directory concurrently and report terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return err
			}
			var paths []string
			for _, e := range entries {
				if !e.IsDir() {
					paths = append(paths, args[0]+"/"+e.Name())
				}
			}
			table := batch.Run(batch.Config{
				Paths:      paths,
				NumWorkers: workers,
				StepLimit:  stepLimit,
				Verbose:    verbose,
				Checkpoint: checkpoint,
			})
			for _, r := range table.Records() {
				fmt.Printf("%-40s %-14s steps=%-8d eip=0x%08X\n", r.Path, r.Reason, r.Steps, r.FinalEIP)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "number of worker goroutines (default: number of CPUs)")
	cmd.Flags().IntVar(&stepLimit, "step-limit", batch.DefaultStepLimit, "max instructions executed per image before giving up")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each image's result as it completes")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "path to a gob checkpoint file to resume from and save to")
	return cmd
}

func newFuzzCmd() *cobra.Command {
	var iterations int
	var stepLimit int
	var output string
	var seed int64

	cmd := &cobra.Command{
		Use:   "fuzz <seed-file>",
		Short: "Mutate a seed boot image to stress-test the decoder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			report := fuzz.Run(fuzz.Config{
				Seed:       data,
				Iterations: iterations,
				StepLimit:  stepLimit,
				Rand:       rand.New(rand.NewSource(seed)),
			})
			fmt.Printf("coverage: %d distinct opcodes reached\n", report.Coverage)
			if report.Crashed {
				fmt.Printf("CRASH: %s\n", report.CrashInfo)
			}
			if output != "" {
				if err := os.WriteFile(output, report.BestImage, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote best image to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 1000, "number of mutation rounds")
	cmd.Flags().IntVar(&stepLimit, "step-limit", 10_000, "max instructions executed per candidate image")
	cmd.Flags().StringVar(&output, "output", "", "path to write the best-found mutated image to")
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed, for reproducible fuzzing runs")
	return cmd
}
