// Package main implements the creduce-go CLI entry point: a single
// `reduce` command that drives the engine against an oracle script and
// an artifact file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rgov/creduce/internal/best"
	"github.com/rgov/creduce/internal/cache"
	"github.com/rgov/creduce/internal/config"
	"github.com/rgov/creduce/internal/engine"
	"github.com/rgov/creduce/internal/lifecycle"
	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/oracle"
	"github.com/rgov/creduce/internal/pass"
	"github.com/rgov/creduce/internal/passes"
	"github.com/rgov/creduce/internal/registry"
	"github.com/rgov/creduce/internal/report"
	"github.com/rgov/creduce/internal/scratch"
)

var (
	verbose        bool
	cppCmd         string
	fuzz           bool
	workers        int
	noDefaultPass  bool
	noGiveUp       bool
	printDiff      bool
	sanitize       bool
	sanityChecks   bool
	saveTemps      bool
	skipInitial    bool
	slow           bool
	sllooww        bool
	useCache       bool
	cacheSize      int
	statisticsFile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "creduce ORACLE_SCRIPT ARTIFACT_FILE",
	Short: "Delta-debugging reducer: shrink ARTIFACT_FILE while ORACLE_SCRIPT keeps accepting it",
	Long: `creduce-go repeatedly applies transformation passes to ARTIFACT_FILE,
keeping any candidate ORACLE_SCRIPT still accepts (exit status 0), until no
pass can make further progress. ORACLE_SCRIPT is invoked as
"ORACLE_SCRIPT candidate_file" with its working directory set to the
candidate's private scratch directory.`,
	Args: cobra.ExactArgs(2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			zcfg.Encoding = "console"
			zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize console logger: %w", err)
		}

		wd, _ := os.Getwd()
		if err := logging.Initialize(wd, verbose); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runReduce,
}

func init() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not set GOMAXPROCS from cgroup quota: %v\n", err)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.Flags().StringVar(&cppCmd, "cpp", "", "one-time preprocessor command run before the main fixpoint")
	rootCmd.Flags().BoolVar(&fuzz, "fuzz", false, "enable fuzz mode (extra speculative advances)")
	rootCmd.Flags().IntVarP(&workers, "n", "n", runtime.GOMAXPROCS(0), "number of speculative parallel workers")
	rootCmd.Flags().BoolVar(&noDefaultPass, "no-default-passes", false, "disable the built-in pass catalog")
	rootCmd.Flags().BoolVar(&noGiveUp, "no-give-up", false, "disable the give-up heuristic")
	rootCmd.Flags().BoolVar(&printDiff, "print-diff", false, "print a diff of each accepted candidate")
	rootCmd.Flags().BoolVar(&sanitize, "sanitize", false, "enable the whitespace-sanitizing pass family")
	rootCmd.Flags().BoolVar(&sanityChecks, "sanity-checks", false, "sanity-check the best file after every pass")
	rootCmd.Flags().BoolVar(&saveTemps, "save-temps", false, "do not remove scratch directories")
	rootCmd.Flags().BoolVar(&skipInitial, "skip-initial-passes", false, "skip the initial phase")
	rootCmd.Flags().BoolVar(&slow, "slow", false, "enable the slow (token-level) pass family")
	rootCmd.Flags().BoolVar(&sllooww, "sllooww", false, "enable the very slow (finer token-level) pass family")
	rootCmd.Flags().BoolVar(&useCache, "cache", false, "cache oracle verdicts by candidate content hash")
	rootCmd.Flags().IntVar(&cacheSize, "cache-size", 10000, "maximum number of cached oracle verdicts")
	rootCmd.Flags().StringVar(&statisticsFile, "statistics-file", "", "dump final counters as yaml or json (by extension) to this path")
}

func runReduce(cmd *cobra.Command, args []string) error {
	oracleScript, artifactPath := args[0], args[1]

	fileCfg, err := config.Load("")
	if err != nil {
		return err
	}
	opts := resolveOptions(cmd, fileCfg)

	absOracle, err := filepath.Abs(oracleScript)
	if err != nil {
		return fmt.Errorf("resolve oracle path: %w", err)
	}
	if info, err := os.Stat(absOracle); err != nil || info.Mode()&0111 == 0 {
		return fmt.Errorf("oracle script %s is not executable", oracleScript)
	}
	absArtifact, err := filepath.Abs(artifactPath)
	if err != nil {
		return fmt.Errorf("resolve artifact path: %w", err)
	}

	origCopy := absArtifact + ".orig"
	if err := copyOriginal(absArtifact, origCopy); err != nil {
		return err
	}

	ws := scratch.New("", opts.SaveTemps)
	runner := oracle.New(absOracle, opts.Verbose)

	bestFile, err := best.New(absArtifact, absArtifact+".best", ws, runner)
	if err != nil {
		return err
	}

	lc := lifecycle.New(ws)
	stop := lc.Install()
	defer stop()

	impls := map[string]pass.Pass{
		registry.FamilyLines:    passes.Lines{},
		registry.FamilyBalanced: passes.Balanced{},
		registry.FamilyBlank:    passes.Blank{},
		registry.FamilySanitize: passes.Sanitize{},
		registry.FamilyClex:     passes.Clex{},
		registry.FamilyChars:    passes.Chars{},
	}
	reg := registry.Build(opts, impls, nil)

	console := &report.Console{Print: func(s string) { fmt.Println(s) }}

	eng := &engine.Engine{
		Registry: reg,
		Best:     bestFile,
		Scratch:  ws,
		Runner:   runner,
		Opts:     opts,
		OrigPath: absArtifact,
		Reporter: console,
	}
	if opts.Cache {
		eng.Cache = cache.New(opts.CacheSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lc.SetTeardown(cancel)

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return err
	}
	logging.Engine("reduction finished in %s", time.Since(start))

	statsPath := statisticsFile
	if !cmd.Flags().Changed("statistics-file") && fileCfg != nil && fileCfg.StatisticsFile != "" {
		statsPath = fileCfg.StatisticsFile
	}
	if statsPath != "" {
		finalSize, _ := bestFile.Size()
		stats := config.Statistics{
			GoodCnt:      eng.Counters.GoodCnt,
			BadCnt:       eng.Counters.BadCnt,
			MethodWorked: eng.Counters.MethodWorked,
			MethodFailed: eng.Counters.MethodFailed,
			OrigSize:     bestFile.OrigSize(),
			FinalSize:    finalSize,
			ElapsedSecs:  time.Since(start).Seconds(),
		}
		if err := config.WriteStatistics(statsPath, stats); err != nil {
			return err
		}
	}
	return nil
}

// resolveOptions layers the on-disk config file under the CLI flags: a
// flag the user actually typed always wins, but for any flag left at
// its zero-value default, a value from fileCfg is honored instead.
func resolveOptions(cmd *cobra.Command, fileCfg *config.Config) registry.Options {
	opts := registry.DefaultOptions()
	opts.Workers = workers
	changed := cmd.Flags().Changed

	if fileCfg != nil {
		if fileCfg.Workers > 0 {
			opts.Workers = fileCfg.Workers
		}
		opts.PreprocessCmd = fileCfg.PreprocessCmd
		if fileCfg.GiveupAfter != 0 {
			opts.GiveupAfter = fileCfg.GiveupAfter
		}
		if fileCfg.CacheSize > 0 {
			opts.CacheSize = fileCfg.CacheSize
		}
		opts.Fuzz = fileCfg.Fuzz
		opts.SanityCheckEachPass = fileCfg.SanityCheckEachPass
		opts.Sanitize = fileCfg.Sanitize
		opts.SkipInitial = fileCfg.SkipInitial
		opts.Slow = fileCfg.Slow
		opts.VerySlow = fileCfg.VerySlow
		opts.NoDefaults = fileCfg.NoDefaults
		opts.PrintDiff = fileCfg.PrintDiff
		opts.SaveTemps = fileCfg.SaveTemps
		opts.Verbose = fileCfg.Verbose
		opts.Cache = fileCfg.Cache
	}

	if changed("n") {
		opts.Workers = workers
	}
	if changed("cpp") {
		opts.PreprocessCmd = cppCmd
	}
	if changed("fuzz") {
		opts.Fuzz = fuzz
	}
	if changed("sanity-checks") {
		opts.SanityCheckEachPass = sanityChecks
	}
	if changed("sanitize") {
		opts.Sanitize = sanitize
	}
	if changed("skip-initial-passes") {
		opts.SkipInitial = skipInitial
	}
	if changed("slow") {
		opts.Slow = slow
	}
	if changed("sllooww") {
		opts.VerySlow = sllooww
	}
	if changed("no-default-passes") {
		opts.NoDefaults = noDefaultPass
	}
	if changed("print-diff") {
		opts.PrintDiff = printDiff
	}
	if changed("save-temps") {
		opts.SaveTemps = saveTemps
	}
	if changed("verbose") {
		opts.Verbose = verbose
	}
	if changed("cache") {
		opts.Cache = useCache
	}
	if changed("cache-size") {
		opts.CacheSize = cacheSize
	}
	if noGiveUp {
		opts.GiveupAfter = registry.GiveupOff
	}
	return opts
}

func copyOriginal(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
