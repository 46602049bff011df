package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harun/labreport/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file with default values to the path given by
--config (default ./labreport.json). Edit it afterwards to set the AI
provider, model, and server settings; API keys and the gateway secret
are read from the environment.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	if !initForce {
		if _, err := os.Stat(loader.Path()); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", loader.Path())
		}
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to: %s\n", loader.Path())
	fmt.Fprintln(cmd.OutOrStdout(), "Start the server with: labreport serve")
	return nil
}
