package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/module"
)

func def(id string, deps ...string) module.Definition {
	return module.Definition{ID: id, Name: id, Dependencies: deps}
}

func TestLayersLinearChain(t *testing.T) {
	layers, cyclic := Layers([]module.Definition{
		def("a"),
		def("b", "a"),
		def("c", "b"),
	})

	require.Empty(t, cyclic)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, layers)
}

func TestLayersIndependentModulesShareALayer(t *testing.T) {
	layers, cyclic := Layers([]module.Definition{
		def("servers"),
		def("chat"),
		def("agents", "servers"),
		def("tasks", "agents"),
	})

	require.Empty(t, cyclic)
	require.Len(t, layers, 3)
	assert.Equal(t, []string{"servers", "chat"}, layers[0])
	assert.Equal(t, []string{"agents"}, layers[1])
	assert.Equal(t, []string{"tasks"}, layers[2])
}

func TestLayersIgnoreDependenciesOutsideSet(t *testing.T) {
	layers, cyclic := Layers([]module.Definition{
		def("worker", "unregistered"),
	})

	require.Empty(t, cyclic)
	assert.Equal(t, [][]string{{"worker"}}, layers)
}

func TestLayersReportCycles(t *testing.T) {
	layers, cyclic := Layers([]module.Definition{
		def("a", "b"),
		def("b", "a"),
		def("standalone"),
	})

	assert.Equal(t, [][]string{{"standalone"}}, layers)
	assert.ElementsMatch(t, []string{"a", "b"}, cyclic)
}

func TestLayersEmptyInput(t *testing.T) {
	layers, cyclic := Layers(nil)
	assert.Empty(t, layers)
	assert.Empty(t, cyclic)
}
