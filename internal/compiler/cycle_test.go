package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tablePipeline(name string) *Pipeline {
	return &Pipeline{Name: name, From: Source{Table: "t"}}
}

func refPipeline(name, from string, joins ...string) *Pipeline {
	p := &Pipeline{Name: name, From: Source{Pipeline: from}}
	for _, j := range joins {
		p.Calls = append(p.Calls, Call{Op: OpJoin, Inner: &Source{Pipeline: j}})
	}
	return p
}

func TestFindCycles_DAG(t *testing.T) {
	pipelines := map[string]*Pipeline{
		"base": tablePipeline("base"),
		"mid":  refPipeline("mid", "base"),
		"top":  refPipeline("top", "mid", "base"),
	}
	assert.Empty(t, FindCycles(pipelines))
}

func TestFindCycles_SelfLoop(t *testing.T) {
	pipelines := map[string]*Pipeline{
		"a": refPipeline("a", "a"),
	}
	cycles := FindCycles(pipelines)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
}

func TestFindCycles_ThroughJoin(t *testing.T) {
	pipelines := map[string]*Pipeline{
		"a":    refPipeline("a", "b"),
		"b":    refPipeline("b", "base", "c"),
		"c":    refPipeline("c", "a"),
		"base": tablePipeline("base"),
	}
	cycles := FindCycles(pipelines)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Equal(t, "pipeline reference cycle: a -> b -> c -> a", cycles[0].Message)
}

func TestFindCycles_IgnoresUnknownReferences(t *testing.T) {
	pipelines := map[string]*Pipeline{
		"a": refPipeline("a", "missing"),
	}
	assert.Empty(t, FindCycles(pipelines))
}

func TestFindCycles_Separate(t *testing.T) {
	pipelines := map[string]*Pipeline{
		"a": refPipeline("a", "b"),
		"b": refPipeline("b", "a"),
		"x": refPipeline("x", "x"),
	}
	assert.Len(t, FindCycles(pipelines), 2)
}
