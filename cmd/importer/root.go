package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"image-review/internal/config"
	"image-review/internal/repository"
	"image-review/internal/service"
	"image-review/pkg/database"
	"image-review/pkg/log"
	"image-review/pkg/storage"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type commandContext struct {
	configPath string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	c.cfg = &cfg
	return c.cfg, nil
}

// openDB 打开并迁移数据库，调用方负责关闭。
func (c *commandContext) openDB() (*gorm.DB, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := database.Migrate(db); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, closeFn, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "importer",
		Short:         "Image review data tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "./configs/config.yaml", "Configuration file path")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	return rootCmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts service.ImportOptions
	var format string

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import an image folder; the first five directory levels become First..Fifth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "auto" && format != "json" && format != "table" {
				return fmt.Errorf("unknown format %q (want auto, json or table)", format)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := acquireImportLock(cfg.Import.LockPath)
			if err != nil {
				return err
			}
			defer unlock()

			db, closeDB, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			var store storage.ObjectStore
			if opts.Upload {
				if s := storage.InitMinIO(cfg.MinIO); s != nil {
					store = s
				}
			}

			importer := service.NewImportService(
				repository.NewImageRepository(db),
				repository.NewImageTitleRepository(db),
				store,
			)
			report, err := importer.ImportDir(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "Also upload each file to object storage")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Scan and count without writing")
	cmd.Flags().StringVar(&format, "format", "auto", "Report format: auto, json or table (auto uses a table on a terminal)")
	return cmd
}

// acquireImportLock 持有导入文件锁，已有导入在运行时立即失败。
func acquireImportLock(lockPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another import is running (lock %s)", lockPath)
	}
	return func() { _ = lock.Unlock() }, nil
}

func writeReport(w io.Writer, format string, report *service.ImportReport) error {
	if format == "table" || (format == "auto" && isTerminal(w)) {
		_, err := fmt.Fprintln(w, renderReport(report))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := ctx.openDB()
			if err != nil {
				return err
			}
			closeDB()
			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
}
