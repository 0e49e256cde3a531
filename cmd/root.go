package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shouni/nft-forge/internal/config"
	"github.com/shouni/nft-forge/pkg/traits"

	"github.com/spf13/cobra"
)

var (
	appCfg *config.Config
	opts   config.GenerateOptions

	// flags は cobra が書き込むフラグの受け皿です。明示指定された値だけが appCfg に反映されます。
	flags struct {
		outputDir     string
		traitsFile    string
		backend       string
		styleRef      string
		steps         int
		guidanceScale float64
		maxAttempts   int
		interval      time.Duration
		seed          int64
	}
)

var rootCmd = &cobra.Command{
	Use:   "nft-forge",
	Short: "重み付きトレイト抽選から NFT ポートレートとメタデータを一括生成します",
	Long: `トレイト定義から 1 トークンずつ見た目を抽選し、プロンプトを組み立てて画像生成バックエンドを呼び出します。
結果は <output-dir>/images/<id>.png と <output-dir>/metadata/<id>.json に保存されます。
失敗したトークンは同じ ID のまま再試行されます。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
	RunE:              runGenerate,
}

func init() {
	// --- 共通 ---
	rootCmd.PersistentFlags().StringVarP(&flags.traitsFile, "traits", "t", "", "トレイト定義 YAML のパス（省略時は組み込みの定義）")
	rootCmd.PersistentFlags().Int64Var(&flags.seed, "seed", 0, "抽選の乱数シード。指定すると同じ組み合わせを再現できます")

	// --- 生成 ---
	rootCmd.Flags().IntVarP(&opts.Count, "count", "n", config.DefaultCount, "生成するトークン数")
	rootCmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", config.DefaultOutputDir, "出力先ディレクトリ（ローカル or gs://...）")
	rootCmd.Flags().StringVarP(&flags.backend, "backend", "b", config.DefaultBackend, "画像生成バックエンド (sdwebui | gemini)")
	rootCmd.Flags().IntVar(&flags.steps, "steps", config.DefaultSteps, "推論ステップ数 (sdwebui のみ)")
	rootCmd.Flags().Float64Var(&flags.guidanceScale, "guidance-scale", config.DefaultGuidanceScale, "guidance scale (sdwebui のみ)")
	rootCmd.Flags().StringVar(&flags.styleRef, "style-ref", "", "全トークンに添付するスタイル参照画像 (gemini のみ。http(s), gs://, ローカルパス)")
	rootCmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "同じトークンの連続失敗の上限。0 で無制限")
	rootCmd.Flags().DurationVar(&flags.interval, "interval", 0, "バックエンド呼び出しの最小間隔 (例: 2s)")

	rootCmd.AddCommand(previewCmd, oddsCmd)
}

// preRunAppE は設定の読み込みとロガーの初期化を行います。
func preRunAppE(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	appCfg = cfg

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if cmd.Flags().Changed("traits") {
		appCfg.TraitsFile = flags.traitsFile
	}
	opts.Seed = nil
	if cmd.Flags().Changed("seed") {
		seed := flags.seed
		opts.Seed = &seed
	}
	return nil
}

// applyGenerateFlags は明示的に指定された生成用フラグで環境変数の値を上書きします。
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output-dir") {
		cfg.OutputDir = flags.outputDir
	}
	if f.Changed("backend") {
		cfg.Backend = strings.ToLower(strings.TrimSpace(flags.backend))
	}
	if f.Changed("steps") {
		cfg.Steps = flags.steps
	}
	if f.Changed("guidance-scale") {
		cfg.GuidanceScale = flags.guidanceScale
	}
	if f.Changed("style-ref") {
		cfg.StyleReferenceURL = flags.styleRef
	}
	if f.Changed("max-attempts") {
		cfg.MaxAttempts = flags.maxAttempts
	}
	if f.Changed("interval") {
		cfg.RequestInterval = flags.interval
	}
}

// loadDefinition は設定に応じて組み込みまたはファイルのトレイト定義を読み込みます。
func loadDefinition(cfg *config.Config) (*traits.Definition, error) {
	def, err := traits.LoadOrDefault(cfg.TraitsFile)
	if err != nil {
		return nil, fmt.Errorf("トレイト定義の読み込みに失敗しました: %w", err)
	}
	return def, nil
}

// Execute は main.go から呼び出されるエントリーポイントです。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
