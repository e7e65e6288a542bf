package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/decksmith/pkg/deck"
)

func newFmtDeckCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "fmt-deck [file|-]",
		Short: "Parse a SCHEDULE fragment and print it in canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			src, err := readSource(name, cmd.InOrStdin())
			if err != nil {
				return err
			}

			d, err := deck.ParseString(src)
			if err != nil {
				var se *deck.SyntaxError
				if errors.As(err, &se) {
					return fmt.Errorf("%s:%d:%d: expected %s, found %s", name, se.Line, se.Column, se.Expected, se.Found)
				}
				return err
			}
			canonical := deck.Serialize(d)
			if check {
				if canonical != src {
					return fmt.Errorf("%s is not in canonical form", name)
				}
				return nil
			}
			_, err = io.WriteString(cmd.OutOrStdout(), canonical)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail when the input is not in canonical form instead of printing it")
	return cmd
}

func readSource(name string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("fmt-deck: %w", err)
	}
	return string(b), nil
}
