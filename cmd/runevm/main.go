// Command runevm loads a module binary and calls one of its exports,
// printing the result. It is a thin driver over the rune package, not
// part of the VM itself (spec.md §1 — the embedding shell is out of
// scope; this is just enough of one to exercise the public API from a
// terminal).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	runevm "github.com/runevm/rune"
	"github.com/runevm/rune/api"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "runevm:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("runevm", flag.ContinueOnError)
	export := fs.String("call", "", "exported function name to invoke")
	fuel := fs.Uint64("fuel", 0, "fuel limit (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 || *export == "" {
		return fmt.Errorf("usage: runevm -call NAME [-fuel N] MODULE.bin [ARG...]")
	}

	raw, err := os.ReadFile(rest[0])
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	module, err := runevm.LoadModule(raw)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}
	defer module.Close()

	cfg := runevm.NewConfig().WithFuelLimit(*fuel)
	vm := runevm.NewVM(module, cfg)
	defer vm.Close()

	ctx := context.Background()
	if err := vm.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiating: %w", err)
	}

	callArgs, err := parseArgs(rest[1:])
	if err != nil {
		return err
	}

	result, err := vm.Call(ctx, *export, callArgs...)
	if err != nil {
		return fmt.Errorf("calling %q: %w (%s)", *export, err, vm.LastError())
	}
	fmt.Println(result.String())
	fmt.Fprintf(os.Stderr, "fuel used: %d\n", vm.FuelUsed())
	return nil
}

// parseArgs turns command-line strings into i32 Values. Richer type
// selection (i64/f32/f64/bool) would need its own flag syntax; this
// driver exists to exercise the API, not to be a full assembler front end.
func parseArgs(raw []string) ([]api.Value, error) {
	out := make([]api.Value, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i, s, err)
		}
		out[i] = api.I32(int32(n))
	}
	return out, nil
}
