package commands

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/reelgen/internal/keychain"
	"github.com/urfave/cli/v3"
)

// TokenSetAction stores the service bearer token in the OS keychain.
func TokenSetAction(_ context.Context, cmd *cli.Command) error {
	if err := keychain.SetToken(cmd.String("value")); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "token stored")
	return nil
}

func TokenClearAction(_ context.Context, cmd *cli.Command) error {
	if err := keychain.ClearToken(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "token cleared")
	return nil
}
