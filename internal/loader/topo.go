package loader

import (
	"github.com/opsdeck/opsdeck/internal/module"
)

// Layers computes a layered topological order over the given definitions.
// Each layer only depends on modules in earlier layers, so modules within a
// layer can be initialized concurrently. Dependencies pointing outside the
// given set are ignored here; Initialize resolves or surfaces them.
//
// The second return value lists modules caught in a dependency cycle. They
// appear in no layer; declaring a cycle is a configuration error that must
// be surfaced, not silently reordered.
func Layers(defs []module.Definition) (layers [][]string, cyclic []string) {
	inSet := make(map[string]bool, len(defs))
	for _, d := range defs {
		inSet[d.ID] = true
	}

	indegree := make(map[string]int, len(defs))
	dependents := make(map[string][]string)
	for _, d := range defs {
		indegree[d.ID] = 0
	}
	for _, d := range defs {
		for _, dep := range d.Dependencies {
			if !inSet[dep] {
				continue
			}
			indegree[d.ID]++
			dependents[dep] = append(dependents[dep], d.ID)
		}
	}

	remaining := len(defs)
	resolved := make(map[string]bool, len(defs))
	for remaining > 0 {
		var layer []string
		// Registration order within a layer keeps passes deterministic.
		for _, d := range defs {
			if !resolved[d.ID] && indegree[d.ID] == 0 {
				layer = append(layer, d.ID)
			}
		}
		if len(layer) == 0 {
			break // everything left is part of a cycle
		}
		for _, id := range layer {
			resolved[id] = true
			for _, dependent := range dependents[id] {
				indegree[dependent]--
			}
		}
		layers = append(layers, layer)
		remaining -= len(layer)
	}

	for _, d := range defs {
		if !resolved[d.ID] {
			cyclic = append(cyclic, d.ID)
		}
	}
	return layers, cyclic
}
