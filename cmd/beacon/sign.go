package main

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errBadSignature = errors.New("signature does not verify")

func signCommand(a *app) *cobra.Command {
	var useBase64 bool
	c := &cobra.Command{
		Use:   "sign <command>",
		Short: "Sign a command with the private key and print the signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			sig, err := a.authenticator().Sign(args[0])
			if err != nil {
				return err
			}
			if useBase64 {
				fmt.Fprintln(c.OutOrStdout(), base64.StdEncoding.EncodeToString(sig))
			} else {
				fmt.Fprintln(c.OutOrStdout(), hex.EncodeToString(sig))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&useBase64, "base64", false, "print the signature as base64 instead of hex")
	return c
}

func verifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <command> <signature>",
		Short: "Check a hex or base64 signature against the public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			sig, err := decodeSignature(args[1])
			if err != nil {
				return err
			}
			if !a.authenticator().Verify(args[0], sig) {
				return errBadSignature
			}
			fmt.Fprintln(c.OutOrStdout(), "ok")
			return nil
		},
	}
}

func decodeSignature(s string) ([]byte, error) {
	if sig, err := hex.DecodeString(s); err == nil {
		return sig, nil
	}
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("signature is neither hex nor base64")
	}
	return sig, nil
}
