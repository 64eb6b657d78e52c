// Command chronovm compiles a small Python-subset source file, runs it
// on the ChronoVM stack machine, and prints the trace, a compressed
// explanation, or one step's full analysis, exercising the pipeline
// end to end the way an HTTP layer would. See SPEC_FULL.md §9a.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chronovm/chronovm/compile"
	"github.com/chronovm/chronovm/config"
	"github.com/chronovm/chronovm/pipeline"
	"github.com/chronovm/chronovm/vm"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "chronovm",
		Short: "Deterministic compile/execute/explain pipeline for a Python-subset language",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(runCmd(), traceCmd(), explainCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func buildSession(path string, cfg config.Config) (*pipeline.Session, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, sourceMap, err := compile.Compile(string(src))
	if err != nil {
		return nil, err
	}
	opts := vm.RunOptions{GC: cfg.GC, MaxSteps: cfg.MaxSteps}
	return pipeline.NewSession(program, sourceMap, opts), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and execute a source file, printing its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(args[0], cfg)
			if err != nil {
				return err
			}
			for _, line := range sess.Result.FinalState.Output {
				fmt.Println(line)
			}
			if sess.Result.FinalState.Err != nil {
				color.Yellow("execution stopped: %s", sess.Result.FinalState.Err.Error())
			}
			color.Green("micro-steps: %d", len(sess.Result.Trace))
			color.Green("semantic steps: %d", len(sess.Semantic))
			return nil
		},
	}
}

func traceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <file>",
		Short: "Print the compressed, source-line-aligned semantic trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(args[0], cfg)
			if err != nil {
				return err
			}
			for _, step := range sess.Semantic {
				color.Cyan("[%d] line %d (%s): %s", step.Index, step.Line, step.Type, step.Summary)
			}
			return nil
		},
	}
}

func explainCmd() *cobra.Command {
	var stepIndex int
	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Print the full analysis aggregate for one micro-step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(args[0], cfg)
			if err != nil {
				return err
			}
			analysis, err := sess.AnalyseStep(stepIndex)
			if err != nil {
				return err
			}
			for _, e := range analysis.Events {
				color.Magenta("event: %s", e.Serialize())
			}
			for _, ins := range analysis.Insights {
				color.Blue("insight: %s %s", ins.Kind, ins.Serialize())
			}
			for _, p := range analysis.Plans {
				color.Green("plan: %s/%s", p.Category, p.Key)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&stepIndex, "step", 0, "micro-step index to analyse")
	return cmd
}
