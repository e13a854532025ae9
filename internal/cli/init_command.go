package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/jdoc/internal/config"
)

const (
	initUse                   = "init"
	initShortDescription      = "write the default configuration"
	initLongDescription       = `Write the default configuration to ./.jdoc.yaml, or to ~/.jdoc/config.yaml with --global.`
	initGlobalFlagName        = "global"
	initForceFlagName         = "force"
	initGlobalFlagDescription = "write the global configuration file"
	initForceFlagDescription  = "overwrite an existing configuration file"
	initWrittenMessageFormat  = "configuration written to %s\n"
)

// emptyOverrides is the flag layer for commands without configuration flags.
var emptyOverrides config.ApplicationConfiguration

func createInitCommand(env environment) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, initWrittenMessageFormat, path)
			return nil
		},
	}
	registerToggleFlag(initCommand.Flags(), &global, initGlobalFlagName, false, initGlobalFlagDescription)
	registerToggleFlag(initCommand.Flags(), &force, initForceFlagName, false, initForceFlagDescription)
	return initCommand
}
