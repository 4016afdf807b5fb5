// Package visualization renders machines as Graphviz diagrams
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/hfsm"
)

// DOTGenerator generates Graphviz DOT format representations of state machines
type DOTGenerator[ID comparable] struct {
	machine *hfsm.Machine[ID]
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowPriorities   bool
	ShowCooldowns    bool
	ShowTimeouts     bool
	ShowGlobals      bool
	HighlightCurrent bool
	RankDirection    string // "TB", "LR", "BT", "RL"
	NodeShape        string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowPriorities:   true,
		ShowCooldowns:    false,
		ShowTimeouts:     true,
		ShowGlobals:      true,
		HighlightCurrent: true,
		RankDirection:    "TB",
		NodeShape:        "box",
	}
}

// NewDOTGenerator creates a new DOT generator for the given machine
func NewDOTGenerator[ID comparable](machine *hfsm.Machine[ID], options ...DOTOptions) *DOTGenerator[ID] {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.RankDirection == "" {
		opts.RankDirection = "TB"
	}
	if opts.NodeShape == "" {
		opts.NodeShape = "box"
	}

	return &DOTGenerator[ID]{
		machine: machine,
		options: opts,
	}
}

// Generate creates a DOT representation of the state machine. Parent states
// are drawn as clusters around their children.
func (g *DOTGenerator[ID]) Generate() (string, error) {
	if g.machine == nil {
		return "", fmt.Errorf("no machine to render")
	}
	if g.machine.StateCount() == 0 {
		return "", fmt.Errorf("machine %q has no states", g.machine.Name())
	}

	var dot strings.Builder
	fmt.Fprintf(&dot, "digraph %s {\n", quote(graphName(g.machine.Name())))
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	dot.WriteString("  compound=true;\n")
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	dot.WriteString("  // States\n")
	clusters := 0
	for _, id := range g.machine.StateIDs() {
		s, _ := g.machine.State(id)
		if s.Parent() == nil {
			g.writeState(&dot, s, "  ", &clusters)
		}
	}

	dot.WriteString("\n  // Transitions\n")
	g.writeTransitions(&dot)

	dot.WriteString("}\n")
	return dot.String(), nil
}

func (g *DOTGenerator[ID]) writeState(dot *strings.Builder, s *hfsm.State[ID], indent string, clusters *int) {
	if s.IsLeaf() {
		fmt.Fprintf(dot, "%s%s [style=\"filled\" fillcolor=%s label=%s];\n",
			indent, nodeName(s.ID()), g.fillColor(s), quote(g.stateLabel(s)))
		return
	}

	*clusters++
	fmt.Fprintf(dot, "%ssubgraph cluster_%d {\n", indent, *clusters)
	fmt.Fprintf(dot, "%s  label=%s;\n", indent, quote(g.stateLabel(s)))
	fmt.Fprintf(dot, "%s  style=\"rounded,filled\";\n", indent)
	fmt.Fprintf(dot, "%s  fillcolor=%s;\n", indent, g.clusterColor(s))
	// edges into a parent attach to this anchor
	fmt.Fprintf(dot, "%s  %s [shape=point width=0.1 label=\"\"];\n", indent, nodeName(s.ID()))
	for _, child := range s.Children() {
		g.writeState(dot, child, indent+"  ", clusters)
	}
	fmt.Fprintf(dot, "%s}\n", indent)
}

func (g *DOTGenerator[ID]) writeTransitions(dot *strings.Builder) {
	for _, id := range g.machine.StateIDs() {
		s, _ := g.machine.State(id)
		for _, t := range s.Transitions() {
			fmt.Fprintf(dot, "  %s -> %s%s;\n", nodeName(t.From()), nodeName(t.To()), g.edgeAttrs(t, ""))
		}
		if g.options.ShowTimeouts {
			if edge := s.TimeoutTransition(); edge != nil {
				extra := fmt.Sprintf("style=dotted label=%s", quote(fmt.Sprintf("after %gs", s.Timeout())))
				fmt.Fprintf(dot, "  %s -> %s [%s];\n", nodeName(s.ID()), nodeName(edge.To()), extra)
			}
		}
	}

	globals := g.machine.GlobalTransitions()
	if !g.options.ShowGlobals || len(globals) == 0 {
		return
	}
	dot.WriteString("  \"*\" [shape=circle label=\"any\" style=dashed];\n")
	for _, t := range globals {
		fmt.Fprintf(dot, "  \"*\" -> %s%s;\n", nodeName(t.To()), g.edgeAttrs(t, "style=dashed"))
	}
}

func (g *DOTGenerator[ID]) edgeAttrs(t *hfsm.Transition[ID], extra string) string {
	var parts []string
	if t.Event() != "" {
		parts = append(parts, t.Event())
	}
	if t.IsReset() {
		parts = append(parts, "reset")
	}
	if g.options.ShowPriorities && t.Priority() != 0 {
		parts = append(parts, fmt.Sprintf("p=%d", t.Priority()))
	}
	if g.options.ShowCooldowns && t.Cooldown().Duration() > 0 {
		parts = append(parts, fmt.Sprintf("cd=%gs", t.Cooldown().Duration()))
	}

	var attrs []string
	if extra != "" {
		attrs = append(attrs, extra)
	}
	if len(parts) > 0 {
		attrs = append(attrs, "label="+quote(strings.Join(parts, " ")))
	}
	if len(attrs) == 0 {
		return ""
	}
	return " [" + strings.Join(attrs, " ") + "]"
}

func (g *DOTGenerator[ID]) stateLabel(s *hfsm.State[ID]) string {
	label := fmt.Sprint(s.ID())
	if initial, ok := g.machine.InitialID(); ok && initial == s.ID() {
		label += "\\n(initial)"
	}
	if s.LockMode() != hfsm.LockNone {
		label += "\\n[" + s.LockMode().String() + "]"
	}
	if tags := s.Tags(); len(tags) > 0 {
		label += "\\n#" + strings.Join(tags, " #")
	}
	return label
}

func (g *DOTGenerator[ID]) fillColor(s *hfsm.State[ID]) string {
	if g.options.HighlightCurrent && g.machine.IsCurrentState(s.ID()) {
		return "gold"
	}
	if initial, ok := g.machine.InitialID(); ok && initial == s.ID() {
		return "lightgreen"
	}
	return "lightblue"
}

func (g *DOTGenerator[ID]) clusterColor(s *hfsm.State[ID]) string {
	if g.options.HighlightCurrent && g.machine.IsInState(s.ID()) {
		return "lightyellow"
	}
	return "lightcyan"
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator[ID]) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG renders the diagram by piping it through the Graphviz dot command
func (g *DOTGenerator[ID]) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed): %s",
			err, strings.TrimSpace(stderr.String()))
	}

	return out.String(), nil
}

func nodeName(id any) string {
	return quote(fmt.Sprint(id))
}

func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

func graphName(name string) string {
	if name == "" {
		return "StateMachine"
	}
	return name
}
