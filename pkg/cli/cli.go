package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

type Command = cli.Command

type Flag = cli.Flag
type IntFlag = cli.IntFlag
type StringFlag = cli.StringFlag

func ShowCommandHelp(cmd *Command) error {
	return cli.ShowSubcommandHelp(cmd)
}

func Info(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
}

func Infof(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func Error(args ...any) {
	fmt.Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, args...)
}

func Fatal(args ...any) {
	Error(args...)
	os.Exit(1)
}
