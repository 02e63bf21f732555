// Package viz exports a container's dependency graph for diagnostics.
//
// It consumes the container only through its public surface (ListKeys,
// GetDescriptor, declared dependencies) and renders Graphviz DOT or Mermaid
// documents, plus a structural health report.
package viz

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chord-di/chord"
)

// Source is the read-only container surface the exporters consume. Both
// *chord.Container implements it and tests can substitute fakes.
type Source interface {
	ListKeys() []chord.Key
	GetDescriptor(key chord.Key) (*chord.Descriptor, bool)
}

var _ Source = (*chord.Container)(nil)

// WriteDOT writes the registration graph in Graphviz DOT format. Nodes are
// colored by lifetime; edges follow declared dependencies.
func WriteDOT(w io.Writer, src Source) error {
	keys := src.ListKeys()

	if _, err := fmt.Fprintln(w, "digraph dependencies {"); err != nil {
		return err
	}
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")

	nodeIDs := make(map[chord.Key]string, len(keys))
	for i, key := range keys {
		nodeIDs[key] = fmt.Sprintf("n%d", i)
	}

	for _, key := range keys {
		d, ok := src.GetDescriptor(key)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %s [label=%q, fillcolor=%q, style=filled];\n",
			nodeIDs[key], fmt.Sprintf("%s\\n%s", key, d.Lifetime), lifetimeColor(d.Lifetime))
	}

	for _, key := range keys {
		d, ok := src.GetDescriptor(key)
		if !ok {
			continue
		}
		for _, dep := range d.Dependencies() {
			to, registered := nodeIDs[dep]
			if !registered {
				// Unregistered dependencies still get a node so the gap is
				// visible in the rendering.
				to = fmt.Sprintf("n%d", len(nodeIDs))
				nodeIDs[dep] = to
				fmt.Fprintf(w, "  %s [label=%q, fillcolor=\"lightgray\", style=\"filled,dashed\"];\n", to, dep.String())
			}
			fmt.Fprintf(w, "  %s -> %s;\n", nodeIDs[key], to)
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

// WriteMermaid writes the registration graph as a Mermaid flowchart.
func WriteMermaid(w io.Writer, src Source) error {
	keys := src.ListKeys()

	if _, err := fmt.Fprintln(w, "graph LR"); err != nil {
		return err
	}

	nodeIDs := make(map[chord.Key]string, len(keys))
	id := func(key chord.Key) string {
		if nodeID, ok := nodeIDs[key]; ok {
			return nodeID
		}
		nodeID := fmt.Sprintf("N%d", len(nodeIDs))
		nodeIDs[key] = nodeID
		return nodeID
	}

	for _, key := range keys {
		d, ok := src.GetDescriptor(key)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "    %s[\"%s (%s)\"]\n", id(key), mermaidEscape(key.String()), d.Lifetime)
	}

	for _, key := range keys {
		d, ok := src.GetDescriptor(key)
		if !ok {
			continue
		}
		for _, dep := range d.Dependencies() {
			fmt.Fprintf(w, "    %s --> %s\n", id(key), id(dep))
		}
	}

	return nil
}

func mermaidEscape(s string) string {
	return strings.NewReplacer("\"", "#quot;", "[", "#91;", "]", "#93;").Replace(s)
}

func lifetimeColor(lt chord.Lifetime) string {
	switch lt {
	case chord.Singleton:
		return "lightblue"
	case chord.Scoped:
		return "lightgreen"
	case chord.Transient:
		return "lightyellow"
	case chord.Factory:
		return "plum"
	default:
		return "white"
	}
}

// Report summarizes the structural health of a container's registrations.
type Report struct {
	// Services is the number of registrations.
	Services int

	// ByLifetime counts registrations per lifetime.
	ByLifetime map[chord.Lifetime]int

	// Missing lists declared dependencies with no registration, per owner.
	Missing map[chord.Key][]chord.Key

	// Cycles lists dependency cycles found by a static walk of declared
	// dependencies. Cycles broken by lazy edges at resolve time still appear
	// here; the report is structural, not behavioral.
	Cycles [][]chord.Key
}

// Healthy reports whether the container has no missing dependencies and no
// cycles.
func (r *Report) Healthy() bool {
	return len(r.Missing) == 0 && len(r.Cycles) == 0
}

// Diagnose walks the declared dependency graph and reports missing
// registrations and cycles.
func Diagnose(src Source) *Report {
	keys := src.ListKeys()

	report := &Report{
		Services:   len(keys),
		ByLifetime: make(map[chord.Lifetime]int),
		Missing:    make(map[chord.Key][]chord.Key),
	}

	deps := make(map[chord.Key][]chord.Key, len(keys))
	for _, key := range keys {
		d, ok := src.GetDescriptor(key)
		if !ok {
			continue
		}
		report.ByLifetime[d.Lifetime]++
		deps[key] = d.Dependencies()

		for _, dep := range d.Dependencies() {
			if _, ok := src.GetDescriptor(dep); !ok {
				report.Missing[key] = append(report.Missing[key], dep)
			}
		}
	}

	// Depth-first cycle search over declared edges.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[chord.Key]int, len(keys))
	var stack []chord.Key

	var visit func(key chord.Key)
	visit = func(key chord.Key) {
		state[key] = visiting
		stack = append(stack, key)

		for _, dep := range deps[key] {
			switch state[dep] {
			case unvisited:
				if _, registered := deps[dep]; registered {
					visit(dep)
				}
			case visiting:
				if i := slices.Index(stack, dep); i >= 0 {
					cycle := slices.Clone(stack[i:])
					cycle = append(cycle, dep)
					report.Cycles = append(report.Cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = done
	}

	for _, key := range keys {
		if state[key] == unvisited {
			visit(key)
		}
	}

	return report
}
