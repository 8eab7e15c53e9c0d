// Command stratadump decodes binary files against declarative structure
// definitions and prints the result, and inspects Intel HEX and Motorola
// S-Record images.
package main

import (
	stdbin "encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/binarytools/strata/define"
	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/format"
	"github.com/binarytools/strata/hexfile"
	"github.com/binarytools/strata/internal/logging"
	"github.com/binarytools/strata/registry"
	"github.com/binarytools/strata/srec"
)

var (
	flagStruct   string
	flagOffset   int64
	flagWordSize int
	flagEndian   string
	flagColor    bool
	flagStyle    string
	flagSegments bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stratadump",
		Short:         "decode binary data against structure declarations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&flagColor, "color", false, "colorize output")
	root.PersistentFlags().StringVar(&flagStyle, "style", "monokai", "color style")

	dump := &cobra.Command{
		Use:   "dump <decls-file> <binary-file>",
		Short: "decode a binary file against a declaration file",
		Args:  cobra.ExactArgs(2),
		RunE:  runDump,
	}
	dump.Flags().StringVar(&flagStruct, "struct", "", "structure to decode (default: last defined)")
	dump.Flags().Int64Var(&flagOffset, "offset", 0, "byte offset to decode at")
	dump.Flags().IntVar(&flagWordSize, "word-size", 8, "word size for pointer kinds, 4 or 8")
	dump.Flags().StringVar(&flagEndian, "endian", "little", "default byte order, little or big")

	hexCmd := &cobra.Command{
		Use:   "hex <file>",
		Short: "inspect an Intel HEX image",
		Args:  cobra.ExactArgs(1),
		RunE:  runHex,
	}
	hexCmd.Flags().BoolVar(&flagSegments, "segments", false, "print merged memory segments instead of records")

	srecCmd := &cobra.Command{
		Use:   "srec <file>",
		Short: "inspect a Motorola S-Record image",
		Args:  cobra.ExactArgs(1),
		RunE:  runSrec,
	}
	srecCmd.Flags().BoolVar(&flagSegments, "segments", false, "print merged memory segments instead of records")

	root.AddCommand(dump, hexCmd, srecCmd)
	return root
}

func setupColor() {
	format.SetColor(flagColor)
	format.SetStyle(flagStyle)
}

func runDump(cmd *cobra.Command, args []string) error {
	setupColor()
	lg := logging.New()

	decls, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	var order stdbin.ByteOrder
	switch flagEndian {
	case "little":
		order = stdbin.LittleEndian
	case "big":
		order = stdbin.BigEndian
	default:
		return fmt.Errorf("bad --endian %q: want little or big", flagEndian)
	}

	reg := registry.New()
	if err := define.RegisterBuiltins(reg); err != nil {
		return err
	}
	defs, err := define.Library(reg, string(decls))
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return fmt.Errorf("%s defines no structures", args[0])
	}

	target := defs[len(defs)-1]
	if flagStruct != "" {
		target = nil
		for _, d := range defs {
			if d.Name() == flagStruct {
				target = d
			}
		}
		if target == nil {
			return fmt.Errorf("%s does not define %q", args[0], flagStruct)
		}
	}

	inst := target.New()
	ctx := &field.Context{
		Order:    order,
		WordSize: flagWordSize,
		Types:    reg,
	}
	n, err := inst.Decode(data, int(flagOffset), ctx)
	if err != nil {
		return err
	}
	lg.Debug("decoded", "struct", target.Name(), "offset", flagOffset, "bytes", n)

	fmt.Fprintln(cmd.OutOrStdout(), format.NewPrinter().Record(inst))
	return nil
}

func runHex(cmd *cobra.Command, args []string) error {
	setupColor()
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := hexfile.Parse(f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagSegments {
		for _, s := range img.Segments() {
			fmt.Fprintf(out, "%#08x  %d bytes\n", s.Addr, len(s.Data))
		}
		return nil
	}
	fmt.Fprintln(out, img)
	if img.Entry != 0 {
		fmt.Fprintf(out, "entrypoint: %#x\n", img.Entry)
	}
	return nil
}

func runSrec(cmd *cobra.Command, args []string) error {
	setupColor()
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := srec.Parse(f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagSegments {
		for _, s := range img.Segments() {
			fmt.Fprintf(out, "%#08x  %d bytes\n", s.Addr, len(s.Data))
		}
		return nil
	}
	if img.Header != "" {
		fmt.Fprintf(out, "header: %s\n", img.Header)
	}
	fmt.Fprintln(out, img)
	if img.Entry != 0 {
		fmt.Fprintf(out, "entrypoint: %#x\n", img.Entry)
	}
	return nil
}
