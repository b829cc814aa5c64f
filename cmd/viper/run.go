package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viper-lang/viper/internal/basicfront"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilparser"
	"github.com/viper-lang/viper/internal/ilprint"
	"github.com/viper-lang/viper/internal/ilverify"
	"github.com/viper-lang/viper/internal/manifest"
	"github.com/viper-lang/viper/internal/passes"
	"github.com/viper-lang/viper/internal/passmgr"
	"github.com/viper-lang/viper/internal/vmruntime"
)

// newRunCmd builds the `run` and `build` universal project driver
// (spec §6: "target is a source file, directory, or manifest"). `run`
// executes the resulting module; `build` only lowers, optimizes, and
// verifies it, printing the canonical IL.
func newRunCmd(verb string) *cobra.Command {
	short := "Compile and run a target (file, directory, or manifest)"
	if verb == "build" {
		short = "Compile a target (file, directory, or manifest) without running it"
	}
	cmd := &cobra.Command{
		Use:   verb + " <target>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
	}
	f := addExecFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dashAt := cmd.ArgsLenAtDash()
		target := args[0]
		var progArgTokens []string
		if dashAt >= 0 {
			progArgTokens = args[dashAt:]
		}

		mod, err := resolveTarget(target, f.optLevel)
		if err != nil {
			return err
		}

		if verb == "build" {
			fmt.Print(ilprint.New(ilprint.Canonical).Print(mod))
			return nil
		}

		machine, err := buildVM(mod, f)
		if err != nil {
			return errorf("%v", err)
		}
		progArgs, err := parseProgramArgs(progArgTokens)
		if err != nil {
			return errorf("%v", err)
		}
		code := runAndReport(machine, progArgs, f.dumpTrap)
		if code != 0 {
			os.Exit(code)
		}
		return nil
	}
	return cmd
}

// runDirectIL implements the bare `-run <file.il>` top-level form: execute
// an IL module directly, no frontend lowering involved. Any remaining
// positional args (after a `--`) are forwarded as program arguments.
func runDirectIL(cmd *cobra.Command, path string, args []string, f *execFlags) error {
	mod, err := loadILFile(path)
	if err != nil {
		return err
	}
	machine, err := buildVM(mod, f)
	if err != nil {
		return errorf("%v", err)
	}
	dashAt := cmd.ArgsLenAtDash()
	var progArgTokens []string
	if dashAt >= 0 {
		progArgTokens = args[dashAt:]
	}
	progArgs, err := parseProgramArgs(progArgTokens)
	if err != nil {
		return errorf("%v", err)
	}
	code := runAndReport(machine, progArgs, f.dumpTrap)
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// loadILFile parses and verifies a textual IL module.
func loadILFile(path string) (*il.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf("%v", err)
	}
	mod, d := ilparser.Parse(string(src), path)
	if d != nil {
		return nil, diagErrorf("parse", d)
	}
	if d := ilverify.Verify(mod); d != nil {
		return nil, diagErrorf("verify", d)
	}
	return mod, nil
}

// resolveTarget lowers a file, directory, or manifest path to a verified,
// optimized IL module. A `.il` file is loaded directly; a `.bas` file is
// lowered via the BASIC frontend; a directory or any other file is
// treated as (or searched for) a project manifest.
func resolveTarget(target, optLevelFlag string) (*il.Module, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, errorf("%v", err)
	}

	manifestPath := target
	if info.IsDir() {
		manifestPath = filepath.Join(target, "viper.manifest")
	}

	var mod *il.Module
	optLevel := optLevelFlag

	switch {
	case !info.IsDir() && strings.HasSuffix(target, ".il"):
		return loadILFile(target)

	case !info.IsDir() && strings.HasSuffix(target, ".bas"):
		src, err := os.ReadFile(target)
		if err != nil {
			return nil, errorf("%v", err)
		}
		m, d := basicfront.Compile(string(src))
		if d != nil {
			return nil, diagErrorf("", d)
		}
		mod = m

	default:
		mf, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, errorf("%v", err)
		}
		entry := mf.Entry
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(filepath.Dir(manifestPath), entry)
		}
		if mf.Lang == manifest.LangZia {
			return nil, errorf("the zia frontend is an external collaborator (spec.md §1) not built into this CLI; compile it to IL separately and pass the .il file directly")
		}
		// mf.Lang == LangBasic: manifest.Load already rejects any other value.
		src, err := os.ReadFile(entry)
		if err != nil {
			return nil, errorf("%v", err)
		}
		m, d := basicfront.Compile(string(src))
		if d != nil {
			return nil, diagErrorf("", d)
		}
		mod = m
		optLevel = string(mf.Optimize)[1:] // "O1" -> "1"
	}

	if d := ilverify.Verify(mod); d != nil {
		return nil, diagErrorf("verify", d)
	}
	return optimizeModule(mod, optLevel)
}

// optimizeModule runs the pipeline named by level ("0"/"1"/"2") over mod
// in place and re-verifies it.
func optimizeModule(mod *il.Module, level string) (*il.Module, error) {
	pipeline, err := pipelineForOptLevel(level)
	if err != nil {
		return nil, errorf("%v", err)
	}
	mgr := passmgr.NewManager()
	passes.RegisterAll(mgr, vmruntime.Default(), nil)
	passes.RegisterPipelines(mgr)
	if err := mgr.Run(pipeline, mod); err != nil {
		return nil, errorf("%v", err)
	}
	if d := ilverify.Verify(mod); d != nil {
		return nil, diagErrorf("verify after optimize", d)
	}
	return mod, nil
}
