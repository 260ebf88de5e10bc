// bookshelfctl 导入、导出与Token管理的命令行工具
//
//	bookshelfctl import --owner 1 --file books.csv --duplicates fail
//	bookshelfctl status --owner 1 <job-id>
//	bookshelfctl export --owner 1 --out books.csv
//	bookshelfctl token issue --owner 1 --email reader@example.com
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/logger"
)

var (
	cfg        *config.Config
	configFile string
	ownerID    uint
)

var rootCmd = &cobra.Command{
	Use:           "bookshelfctl",
	Short:         "Bookshelf command line tool",
	Long:          "Imports and exports book collections as CSV and manages API tokens, sharing the server's database and configuration.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if _, err := logger.New(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default config/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// requireOwner 需要所有者ID的子命令共用
func requireOwner(cmd *cobra.Command) {
	cmd.Flags().UintVar(&ownerID, "owner", 0, "owner (user) id")
	_ = cmd.MarkFlagRequired("owner")
}
