package hfsm

import (
	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// ToDOT generates a DOT language string representation of the definition for
// visualization. No state is highlighted as current.
func (d *Definition[C]) ToDOT() g.String { return d.toDOT("") }

// ToDOT generates a DOT language string representation of the machine with its
// current state highlighted.
func (m *Machine[C]) ToDOT() g.String { return m.def.toDOT(m.Current()) }

func (d *Definition[C]) toDOT(current State) g.String {
	b := g.NewBuilder()

	b.WriteString("digraph FSM {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	b.WriteString("  __start [shape=point, style=invis];\n")
	b.WriteString(g.Format("  __start -> \"{}\" [label=\" initial\"];\n\n", d.initial))

	var edges g.Slice[g.Pair[State, State]]
	labels := g.NewMap[g.Pair[State, State], g.Slice[g.String]]()

	for from := range d.order.Iter() {
		on := d.states[from].On

		events := on.Keys()
		events.SortBy(cmp.Cmp)

		for event := range events.Iter() {
			def := on[event]
			to := def.Target
			if to == "" {
				to = from
			}

			label := g.String(event)

			switch {
			case def.Target == "":
				label += " (internal)"
			case def.Guard != nil:
				label += " (guarded)"
			}

			key := g.Pair[State, State]{Key: from, Value: to}
			if !labels.Contains(key) {
				edges.Push(key)
			}

			labels[key] = append(labels[key], label)
		}
	}

	outgoing := g.NewSet[State]()
	for key := range edges.Iter() {
		outgoing.Insert(key.Key)
	}

	for state := range d.order.Iter() {
		var attrs g.Slice[g.String]
		attrs.Push(g.Format("label=\"{}\"", state))

		switch {
		case state == current:
			attrs.Push("fillcolor=\"#90ee90\"", "shape=doublecircle")
		case !outgoing.Contains(state):
			attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
		}

		var tooltips g.Slice[g.String]

		st := d.states[state]
		if st.Entry != nil {
			tooltips.Push("entry")
		}

		if st.Exit != nil {
			tooltips.Push("exit")
		}

		if tooltips.NotEmpty() {
			attrs.Push(g.Format("tooltip=\"{}\"", tooltips.Join("\\n")))
		}

		b.WriteString(g.Format("  \"{}\" [{}];\n", state, attrs.Join(", ")))
	}

	b.WriteByte('\n')

	for key := range edges.Iter() {
		var edge g.Slice[g.String]

		label := labels[key].Join("\\n")
		edge.Push(g.Format("label=\" {} \"", label))

		if label.Contains("(guarded)") {
			edge.Push("style=dashed", "color=red", "arrowhead=odiamond")
		}

		b.WriteString(g.Format("  \"{}\" -> \"{}\" [{}];\n", key.Key, key.Value, edge.Join(", ")))
	}

	for state := range d.order.Iter() {
		if parent := d.states[state].Parent; parent != "" {
			b.WriteString(g.Format("  \"{}\" -> \"{}\" [style=dotted, arrowhead=empty, label=\" parent\"];\n", state, parent))
		}
	}

	b.WriteString("\n  subgraph cluster_legend {\n")
	b.WriteString("    label = \"Legend\";\n")
	b.WriteString("    style = dashed;\n")
	b.WriteString(`    key [label=<
      <table border="0" cellpadding="4" cellspacing="0" cellborder="0">
        <tr><td align="right">●</td><td>Regular state</td></tr>
        <tr><td align="right"><font color="green">◎</font></td><td>Current state</td></tr>
        <tr><td align="right"><font color="gray">◎</font></td><td>Final state</td></tr>
        <tr><td align="right"><font color="red">→</font></td><td>Guarded transition</td></tr>
        <tr><td align="right">⇢</td><td>Parent</td></tr>
      </table>
    >, shape=none];
`)
	b.WriteString("  }\n")
	b.WriteString("}\n")

	return b.String()
}
