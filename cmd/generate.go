package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const cleanupTimeout = 30 * time.Second

// runGenerate はルートコマンドの本体です。設定の検証後、生成ドライバを最後まで回します。
func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyGenerateFlags(cmd, appCfg)
	if err := appCfg.Validate(); err != nil {
		return err
	}
	if opts.Count < 0 {
		return fmt.Errorf("--count は 0 以上である必要があります: %d", opts.Count)
	}

	def, err := loadDefinition(appCfg)
	if err != nil {
		return err
	}

	app, err := buildGenerationApp(ctx, appCfg, def, opts)
	if err != nil {
		return err
	}
	defer func() {
		// 中断後でも File API の後始末ができるよう、独立したコンテキストを使う
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		app.Close(cleanupCtx)
	}()

	slog.InfoContext(ctx, "NFT 生成を開始します",
		"collection", def.Collection.Name,
		"backend", appCfg.Backend,
		"output_dir", appCfg.OutputDir,
		"count", opts.Count,
	)

	summary, err := app.driver.Run(ctx, opts.Count)
	if summary != nil {
		slog.InfoContext(ctx, "NFT 生成が終了しました",
			"requested", summary.Requested,
			"generated", summary.Generated,
			"failures", summary.Failures,
		)
	}
	if err != nil {
		return fmt.Errorf("生成が完了しませんでした: %w", err)
	}
	return nil
}
