// Package pipeline provides the analyseStep convenience aggregate named
// in spec.md §6, and a Session type that runs a compiled program once
// and serves repeated AnalyseStep calls against the resulting trace.
package pipeline

import (
	"fmt"

	"github.com/chronovm/chronovm/compress"
	"github.com/chronovm/chronovm/explain"
	"github.com/chronovm/chronovm/insight"
	"github.com/chronovm/chronovm/memory"
	"github.com/chronovm/chronovm/memory/diff"
	"github.com/chronovm/chronovm/memory/graph"
	"github.com/chronovm/chronovm/plan"
	"github.com/chronovm/chronovm/vm"
)

// OutOfRangeError is raised by AnalyseStep for a bounds-violating step
// index, per spec.md §7's programming-error taxonomy.
type OutOfRangeError struct {
	StepIndex int
	TraceLen  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("pipeline: step index %d out of range [0, %d)", e.StepIndex, e.TraceLen)
}

// StepAnalysis is the {memoryModel, graph, diffFromPrevious, events,
// insights, plans} aggregate spec.md §6 names.
type StepAnalysis struct {
	MemoryModel      *memory.Model
	Graph            *graph.Graph
	DiffFromPrevious *diff.Diff // nil at stepIndex 0
	Events           []explain.Event
	Insights         []insight.Insight
	Plans            []plan.Plan
}

// AnalyseStep builds the full analysis for trace[stepIndex]. stepIndex
// 0 yields empty events/insights/plans and a nil diff (the trace holds
// no entry before it to compare against); an out-of-range index raises
// *OutOfRangeError.
func AnalyseStep(trace vm.Trace, stepIndex int) (*StepAnalysis, error) {
	if stepIndex < 0 || stepIndex >= len(trace) {
		return nil, &OutOfRangeError{StepIndex: stepIndex, TraceLen: len(trace)}
	}

	after := memory.BuildModel(trace[stepIndex])
	afterGraph := graph.BuildGraph(after)

	if stepIndex == 0 {
		return &StepAnalysis{MemoryModel: after, Graph: afterGraph}, nil
	}

	before := memory.BuildModel(trace[stepIndex-1])
	beforeGraph := graph.BuildGraph(before)
	d := diff.DiffModels(before, after)

	cf := controlFlowFor(trace, stepIndex)
	events := explain.ExplainDiff(d, beforeGraph, afterGraph, cf)
	insights := insight.Analyse(events)
	plans := plan.MakePlans(insights)

	return &StepAnalysis{
		MemoryModel:      after,
		Graph:            afterGraph,
		DiffFromPrevious: d,
		Events:           events,
		Insights:         insights,
		Plans:            plans,
	}, nil
}

// controlFlowFor derives explain.ControlFlow from the instruction that
// produced trace[stepIndex], mirroring compress's own pre/post-pc
// reconstruction so both layers agree on what "the step's opcode" means.
func controlFlowFor(trace vm.Trace, stepIndex int) explain.ControlFlow {
	before := trace[stepIndex-1]
	after := trace[stepIndex]
	if before.PC < 0 || before.PC >= before.Program.Len() {
		return explain.ControlFlow{}
	}
	ins := before.Program.Instructions[before.PC]
	switch ins.Op {
	case vm.OpJump, vm.OpJumpIfFalse, vm.OpJumpIfTrue:
		return explain.ControlFlow{
			HasControlFlow: true,
			FromPC:         before.PC,
			ToPC:           after.PC,
			Opcode:         ins.Op,
			JumpTarget:     ins.Int,
		}
	default:
		return explain.ControlFlow{}
	}
}

// Session runs one program to completion and caches the analysis
// aggregates a CLI or HTTP layer would request across a scrubbing
// session, so repeated AnalyseStep calls don't rebuild shared state.
type Session struct {
	Program   *vm.Program
	SourceMap []int
	Result    *vm.RunResult
	Semantic  []compress.SemanticStep

	analyses map[int]*StepAnalysis
}

// NewSession runs program to halt (or the step cap) with opts and
// compresses the resulting trace against sourceMap.
func NewSession(program *vm.Program, sourceMap []int, opts vm.RunOptions) *Session {
	result := vm.RunToHalt(program, opts)
	return &Session{
		Program:   program,
		SourceMap: sourceMap,
		Result:    result,
		Semantic:  compress.CompressTrace(result.Trace, sourceMap),
		analyses:  map[int]*StepAnalysis{},
	}
}

// AnalyseStep memoizes pipeline.AnalyseStep over this session's trace.
func (s *Session) AnalyseStep(stepIndex int) (*StepAnalysis, error) {
	if a, ok := s.analyses[stepIndex]; ok {
		return a, nil
	}
	a, err := AnalyseStep(s.Result.Trace, stepIndex)
	if err != nil {
		return nil, err
	}
	s.analyses[stepIndex] = a
	return a, nil
}
