// cmd/gemtrain/main.go
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"continual-gem/nn"
)

var (
	cfgFile  string
	logLevel string
	v        = viper.New()

	rootCmd = &cobra.Command{
		Use:   "gemtrain",
		Short: "Train a classifier on a stream of experiences with Gradient Episodic Memory",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}

	deviceCmd = &cobra.Command{
		Use:   "device",
		Short: "Print the compute device training runs on",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(nn.DescribeDevice())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	rootCmd.AddCommand(deviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var longRoot = `
gemtrain trains a small MLP classifier on a sequence of experiences, one CSV
file per experience, using Gradient Episodic Memory to limit forgetting of
earlier experiences. Each CSV row holds numeric features followed by an
integer class label.
`
