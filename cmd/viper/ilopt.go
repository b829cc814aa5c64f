package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viper-lang/viper/internal/ilparser"
	"github.com/viper-lang/viper/internal/ilprint"
	"github.com/viper-lang/viper/internal/ilverify"
	"github.com/viper-lang/viper/internal/passes"
	"github.com/viper-lang/viper/internal/passmgr"
	"github.com/viper-lang/viper/internal/vmruntime"
)

func newILOptCmd() *cobra.Command {
	var (
		out          string
		passList     string
		pipelineName string
		printBefore  bool
		printAfter   bool
		verifyEach   bool
		noMem2Reg    bool
		mem2regStats bool
		statsFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "il-opt <in.il>",
		Short: "Run the transformation pass pipeline over an IL module",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return errorf("%v", err)
		}
		mod, d := ilparser.Parse(string(src), args[0])
		if d != nil {
			return diagErrorf("parse", d)
		}
		if d := ilverify.Verify(mod); d != nil {
			return diagErrorf("verify", d)
		}

		var stats passes.Stats
		mgr := passmgr.NewManager()
		passes.RegisterAll(mgr, vmruntime.Default(), &stats)
		passes.RegisterPipelines(mgr)
		if statsFlag || printBefore || printAfter {
			mgr.Output = os.Stderr
		}
		mgr.PrintBefore = printBefore
		mgr.PrintAfter = printAfter
		mgr.VerifyEach = verifyEach

		ids, runErr := resolvePassList(mgr, passList, pipelineName)
		if runErr != nil {
			return runErr
		}
		if noMem2Reg {
			ids = removeID(ids, passes.IDMem2Reg)
		}
		for _, id := range ids {
			if err := mgr.RunPass(id, mod); err != nil {
				return errorf("%v", err)
			}
		}

		if mem2regStats {
			fmt.Fprintf(os.Stderr, "mem2reg: promoted=%d removed-loads=%d removed-stores=%d\n",
				stats.Mem2Reg.PromotedVars, stats.Mem2Reg.RemovedLoads, stats.Mem2Reg.RemovedStores)
		}

		text := ilprint.New(ilprint.Canonical).Print(mod)
		if out == "" || out == "-" {
			fmt.Print(text)
			return nil
		}
		return os.WriteFile(out, []byte(text), 0644)
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&passList, "passes", "", "comma-separated list of pass ids to run, in order")
	cmd.Flags().StringVar(&pipelineName, "pipeline", "O1", "named pipeline to run (O0, O1, or O2)")
	cmd.Flags().BoolVar(&printBefore, "print-before", false, "print the module before each pass")
	cmd.Flags().BoolVar(&printAfter, "print-after", false, "print the module after each pass")
	cmd.Flags().BoolVar(&verifyEach, "verify-each", false, "verify the module after each pass")
	cmd.Flags().BoolVar(&noMem2Reg, "no-mem2reg", false, "skip the mem2reg pass even if the pipeline includes it")
	cmd.Flags().BoolVar(&mem2regStats, "mem2reg-stats", false, "print mem2reg promotion statistics")
	cmd.Flags().BoolVar(&statsFlag, "stats", false, "print per-pass before/after instrumentation counts to stderr")
	return cmd
}

func resolvePassList(mgr *passmgr.Manager, passList, pipelineName string) ([]string, error) {
	if passList != "" {
		var ids []string
		for _, id := range strings.Split(passList, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	ids, ok := mgr.Pipeline(pipelineName)
	if !ok {
		return nil, errorf("unknown pipeline %q", pipelineName)
	}
	return ids, nil
}

func removeID(ids []string, target string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
