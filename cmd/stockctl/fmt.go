package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledgerfile"
)

type fmtCmd struct {
	write        bool
	implicitTake bool
	out          io.Writer
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats ledger files into the canonical form"
}
func (*fmtCmd) Usage() string {
	return `stockctl fmt [-w] [-implicit-take] <file>...

  Decodes each ledger file and prints it in canonical form: one record per
  line with an explicit time, canonical key names and one command flag.
  Records without a time get the time they inherit at replay. With -w the
  files are rewritten in place.

`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.write, "w", false, "write result to the source file instead of stdout")
	f.BoolVar(&c.implicitTake, "implicit-take", false, "read records without command flag as take")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	dec := ledgerfile.Decoder{AllowImplicitTake: c.implicitTake}

	status := subcommands.ExitSuccess
	for _, path := range f.Args() {
		formatted, err := formatFile(dec, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			status = subcommands.ExitFailure
			continue
		}
		if !c.write {
			output(c.out).Write(formatted)
			continue
		}
		if err := replaceFile(path, formatted); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			status = subcommands.ExitFailure
		}
	}
	return status
}

func formatFile(dec ledgerfile.Decoder, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := dec.Decode(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := ledgerfile.Encode(&b, inventory.InheritTimes(records)...); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// replaceFile writes through a temporary file so a failed write keeps the
// original.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fmt-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
