package verifier

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verifier/flags"
	"github.com/ethereum-optimism/infra/op-verifier/promote"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

// PromoteCmd returns the action of the promote subcommand. It moves a
// verified build's package repository into the configured release channel
// and exits.
func PromoteCmd() func(cliCtx *cli.Context) error {
	return func(cliCtx *cli.Context) error {
		logCfg := oplog.ReadCLIConfig(cliCtx)
		lgr := oplog.NewLogger(oplog.AppOut(cliCtx), logCfg)

		promoter, err := promote.NewHTTPPromoter(cliCtx.String(flags.PromoteEndpoint.Name), lgr)
		if err != nil {
			return fmt.Errorf("invalid promote flags: %w", err)
		}
		return promoter.Promote(cliCtx.Context, promote.Request{
			Distribution: cliCtx.String(flags.Distribution.Name),
			BuildID:      cliCtx.String(flags.BuildID.Name),
			Channel:      cliCtx.String(flags.Channel.Name),
		})
	}
}
