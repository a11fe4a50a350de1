package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/jvmflow/jflow/core/bytecode"
)

var opcodesCommand = &cli.Command{
	Action: printOpcodes,
	Name:   "opcodes",
	Usage:  "Print the opcode catalog",
	Flags:  []cli.Flag{wideFlag},
	Description: `
The opcodes command prints every opcode with its operands, its effect on the
operand stack, its control flow kind and the local variable it touches.`,
}

func printOpcodes(ctx *cli.Context) error {
	ops := bytecode.Opcodes()
	if ctx.Bool(wideFlag.Name) {
		ops = append(ops, bytecode.WideOpcodes()...)
	}
	return writeOpcodes(ctx.App.Writer, ops)
}

func writeOpcodes(w io.Writer, ops []bytecode.Opcode) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opcode", "Mnemonic", "Operands", "Stack", "Kind", "Local"})
	table.SetAutoWrapText(false)
	for _, op := range ops {
		info, err := bytecode.Lookup(op)
		if err != nil {
			return err
		}
		operands := make([]string, len(info.Operands))
		for i, k := range info.Operands {
			operands[i] = k.String()
		}
		if info.Variadic {
			operands = append(operands, "...")
		}
		stack := info.Rule.String()
		if info.Rule == bytecode.RuleFixed {
			stack = fmt.Sprintf("-%d +%d", info.Pops, info.Pushes)
		}
		local := ""
		if info.IsLocalVarAccess() {
			local = "operand"
			if info.ImplicitVar >= 0 {
				local = strconv.Itoa(info.ImplicitVar)
			}
			local += fmt.Sprintf(" (width %d)", info.VarWidth)
		}
		table.Append([]string{
			fmt.Sprintf("0x%02x", uint16(op)),
			info.Name,
			strings.Join(operands, " "),
			stack,
			info.Kind.String(),
			local,
		})
	}
	table.Render()
	return nil
}
