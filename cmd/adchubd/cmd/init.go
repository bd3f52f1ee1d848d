package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/direct-connect/adchub/hub"
)

const defaultConfigPath = "hub.yml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "write a default hub.yml configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := hub.NewConfig()
		if err := cfg.Viper().WriteConfigAs(defaultConfigPath); err != nil {
			return err
		}
		fmt.Println("wrote", defaultConfigPath)
		return nil
	},
}

func init() {
	Root.AddCommand(initCmd)
}
