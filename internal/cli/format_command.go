package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatUse              = "format <file>"
	formatAlias            = "f"
	formatShortDescription = "re-indent a Java file with vim (" + formatAlias + ")"
	formatLongDescription  = `Run only the vim auto-indent step on a file, using the formatter section of the configuration.`
)

func createFormatCommand(env environment, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     formatUse,
		Aliases: []string{formatAlias},
		Short:   formatShortDescription,
		Long:    formatLongDescription,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			inputPath, inputErr := resolveInputFile(arguments[0])
			if inputErr != nil {
				return inputErr
			}
			settings, settingsErr := loadSettings(root, emptyOverrides)
			if settingsErr != nil {
				return settingsErr
			}
			if err := env.newFormatter(settings).Format(command.Context(), inputPath.AbsolutePath); err != nil {
				return err
			}
			env.logger.Info("file formatted", zap.String("path", inputPath.AbsolutePath))
			return nil
		},
	}
}
