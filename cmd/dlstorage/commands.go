package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/dlunire/dlstorage-go/storage"
)

// command runs a subcommand with its arguments (the command name excluded).
type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"save":    runSave,
	"load":    runLoad,
	"inspect": runInspect,
	"list":    runList,
	"rm":      runRemove,
}

// refFlags holds the flags shared by commands that address one container.
type refFlags struct {
	key  string
	bare bool
}

func (f *refFlags) register(flagSet *pflag.FlagSet, withKey bool) {
	if withKey {
		flagSet.StringVar(&f.key, "key", "", "entropy key (empty string is a valid key)")
	}
	flagSet.BoolVar(&f.bare, "bare", false, "resolve NAME against the document root instead of its storage directory")
}

// options converts the flags to storage options. A --key given as "" still
// selects keyed entropy.
func (f *refFlags) options(flagSet *pflag.FlagSet) []storage.DataOption {
	var opts []storage.DataOption
	if flagSet.Lookup("key") != nil && flagSet.Changed("key") {
		opts = append(opts, storage.WithKey([]byte(f.key)))
	}
	if f.bare {
		opts = append(opts, storage.WithoutStorageDir())
	}
	return opts
}

// parseNamed parses args and returns the single NAME operand.
func parseNamed(a *app, flagSet *pflag.FlagSet, args []string) (string, error) {
	flagSet.SetOutput(a.stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", errUsage, err)
	}
	if flagSet.NArg() != 1 {
		return "", fmt.Errorf("%w: expected exactly one NAME, got %d arguments", errUsage, flagSet.NArg())
	}
	return flagSet.Arg(0), nil
}

func runSave(ctx context.Context, a *app, args []string) error {
	var in string
	var rf refFlags
	flagSet := pflag.NewFlagSet("save", pflag.ContinueOnError)
	flagSet.StringVar(&in, "in", "", "read data from FILE instead of stdin")
	rf.register(flagSet, true)

	name, err := parseNamed(a, flagSet, args)
	if err != nil {
		return err
	}

	var data []byte
	if in == "" || in == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(in)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if err := a.store.SaveData(ctx, name, data, rf.options(flagSet)...); err != nil {
		return err
	}
	a.logger.Info("saved", "name", name, "bytes", len(data))
	return nil
}

func runLoad(ctx context.Context, a *app, args []string) error {
	var out string
	var rf refFlags
	flagSet := pflag.NewFlagSet("load", pflag.ContinueOnError)
	flagSet.StringVar(&out, "out", "", "write data to FILE instead of stdout")
	rf.register(flagSet, true)

	name, err := parseNamed(a, flagSet, args)
	if err != nil {
		return err
	}

	data, err := a.store.ReadStorageData(ctx, name, rf.options(flagSet)...)
	if err != nil {
		return err
	}

	if out == "" || out == "-" {
		_, err = a.stdout.Write(data)
	} else {
		err = os.WriteFile(out, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runInspect(ctx context.Context, a *app, args []string) error {
	var rf refFlags
	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	rf.register(flagSet, false)

	name, err := parseNamed(a, flagSet, args)
	if err != nil {
		return err
	}

	hdr, err := a.store.Stat(ctx, name, rf.options(flagSet)...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "version\t%s\n", hdr.Version)
	fmt.Fprintf(a.stdout, "header_length\t%d\n", hdr.HeaderLength)
	fmt.Fprintf(a.stdout, "payload_length\t%d\n", hdr.PayloadLength)
	fmt.Fprintf(a.stdout, "payload_offset\t%d\n", hdr.PayloadOffset())
	fmt.Fprintf(a.stdout, "size\t%d\n", hdr.Size())
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}

	names, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}

func runRemove(ctx context.Context, a *app, args []string) error {
	var rf refFlags
	flagSet := pflag.NewFlagSet("rm", pflag.ContinueOnError)
	rf.register(flagSet, false)

	name, err := parseNamed(a, flagSet, args)
	if err != nil {
		return err
	}
	return a.store.Delete(ctx, name, rf.options(flagSet)...)
}
