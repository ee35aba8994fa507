// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/objectdb"
)

func keygenCommand(globals *Globals) *cli.Command {
	var (
		recipients []string
		outputPath string
	)
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate a sealing key",
		Description: `Generate a random master key for sealing objects. Without --recipient
the key is printed as hex, for store.sealing_key_file. With one or
more --recipient age public keys it is age-encrypted to them instead;
point store.sealing_key_file at the result and
store.sealing_identity_file at a matching identity.

The key is written to --output (created with mode 0600, never
overwritten) or stdout.`,
		Usage: "contentstore keygen [--recipient age1...]... [--output FILE]",
		Examples: []cli.Example{
			{
				Description: "Wrap a new key to an operator and an escrow key",
				Command:     "contentstore keygen --recipient age1operator... --recipient age1escrow... --output store.key.age",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringArrayVar(&recipients, "recipient", nil, "age public key to encrypt the key to (repeatable)")
			flagSet.StringVarP(&outputPath, "output", "o", "", "file to write the key to")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("keygen takes no arguments, got %q", args[0])
			}
			if outputPath == "" {
				return objectdb.GenerateKey(globals.Stdout, recipients)
			}
			file, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return err
			}
			err = objectdb.GenerateKey(file, recipients)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(outputPath)
			}
			return err
		},
	}
}
