package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/core/flow"
	"github.com/jvmflow/jflow/core/maxs"
)

var cfgCommand = &cli.Command{
	Action:    printBlocks,
	Name:      "cfg",
	Usage:     "Print the basic blocks of one method",
	ArgsUsage: "<listing.yaml> <method>",
	Flags:     []cli.Flag{formatFlag},
	Description: `
The cfg command resolves the control flow of one method and prints its basic
blocks with the operand stack depth and local slots on entry to each block.
With --format dot it prints a Graphviz graph instead of a table. The method
may be given as name or as name followed by descriptor.`,
}

// blockState is what the analyses know on entry to a block.
type blockState struct {
	block   *flow.Block
	reached bool
	stack   int
	locals  int
}

func printBlocks(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	format := ctx.String(formatFlag.Name)
	if format != "table" && format != "dot" {
		return fmt.Errorf("unknown format %q (use table or dot)", format)
	}
	listings, err := loadListings(ctx.Context, []string{ctx.Args().Get(0)})
	if err != nil {
		return err
	}
	m, err := listings[0].find(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	g, err := flow.Resolve(m)
	if err != nil {
		return err
	}
	states, err := blockStates(g, descriptor.NewCache(cfg.Analysis.DescriptorCache))
	if err != nil {
		return err
	}
	if format == "dot" {
		_, err := ctx.App.Writer.Write(buildDOT(g, states, m.Name+m.Descriptor))
		return err
	}
	writeBlocksTable(ctx.App.Writer, g, states)
	return nil
}

func blockStates(g *flow.Graph, descs descriptor.Parser) ([]blockState, error) {
	flows, err := maxs.Solve(g, descs)
	if err != nil {
		return nil, err
	}
	blocks := g.Blocks()
	states := make([]blockState, len(blocks))
	for i, b := range blocks {
		states[i].block = b
		if s, ok := flows.Stack.At(b.First()); ok {
			states[i].reached = true
			states[i].stack = s.Size()
		}
		if l, ok := flows.Locals.At(b.First()); ok {
			states[i].locals = l.Size()
		}
	}
	return states, nil
}

func entryString(e bytecode.Entry) string {
	if l, ok := e.(bytecode.Label); ok {
		return "label " + l.UID()
	}
	return e.String()
}

func blockNums(blocks []*flow.Block) string {
	nums := make([]string, len(blocks))
	for i, b := range blocks {
		nums[i] = "BB" + strconv.Itoa(b.Num())
	}
	return strings.Join(nums, " ")
}

func writeBlocksTable(w io.Writer, g *flow.Graph, states []blockState) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Entries", "First", "Last", "Stack In", "Locals In", "Successors", "Handlers"})
	table.SetAutoWrapText(false)
	for _, s := range states {
		b := s.block
		stackIn, localsIn := "unreachable", "-"
		if s.reached {
			stackIn, localsIn = strconv.Itoa(s.stack), strconv.Itoa(s.locals)
		}
		name := "BB" + strconv.Itoa(b.Num())
		if b.IsHandler() {
			name += " (handler)"
		}
		table.Append([]string{
			name,
			fmt.Sprintf("[%d,%d]", b.First(), b.Last()),
			entryString(g.Entry(b.First())),
			entryString(g.Entry(b.Last())),
			stackIn,
			localsIn,
			blockNums(b.Children()),
			blockNums(b.Catchers()),
		})
	}
	table.Render()
}

func buildDOT(g *flow.Graph, states []blockState, title string) []byte {
	var buf strings.Builder
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph CFG {")
	fmt.Fprintln(w, "  rankdir=TB;")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(title))
	}
	// Nodes
	for _, s := range states {
		b := s.block
		label := fmt.Sprintf("BB%d\\n[%d,%d]\\nfirst:%s\\nlast:%s", b.Num(), b.First(), b.Last(), entryString(g.Entry(b.First())), entryString(g.Entry(b.Last())))
		if s.reached {
			label += fmt.Sprintf("\\nstack:%d locals:%d", s.stack, s.locals)
		} else {
			label += "\\nunreachable"
		}
		style := ""
		if b.IsHandler() {
			style = ", style=dashed"
		}
		fmt.Fprintf(w, "  n%d [label=\"%s\"%s];\n", b.Num(), escapeDOT(label), style)
	}
	// Edges
	for _, s := range states {
		for _, ch := range s.block.Children() {
			fmt.Fprintf(w, "  n%d -> n%d;\n", s.block.Num(), ch.Num())
		}
		for _, h := range s.block.Catchers() {
			fmt.Fprintf(w, "  n%d -> n%d [style=dotted];\n", s.block.Num(), h.Num())
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return []byte(buf.String())
}

// escapeDOT keeps backslash sequences such as \n for Graphviz and only
// escapes double quotes and literal newlines.
func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
