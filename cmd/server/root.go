package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"refenum/internal/config"
	"refenum/internal/logger"
)

// cli: общее состояние команд: viper с привязанными флагами и итоговый конфиг.
type cli struct {
	v   *viper.Viper
	cfg config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "refenum",
		Short:         "Reference-data enumerations over SQL tables with an HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(c.v, path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel), "refenum")
			return nil
		},
	}
	// ошибка возможна только при опечатке в имени флага
	cobra.CheckErr(config.BindFlags(root, c.v))

	root.AddCommand(newServeCmd(c), newEnumsCmd(c))
	return root
}
