package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/flaneur2020/palpack/palpack"
	"github.com/flaneur2020/palpack/palpack/compression"
	"github.com/flaneur2020/palpack/palpack/config"
	"github.com/flaneur2020/palpack/palpack/logger"
	"github.com/flaneur2020/palpack/palpack/metrics"
	"github.com/flaneur2020/palpack/palpack/storage"
)

var (
	configPath  string
	verbose     bool
	debug       bool
	metricsFile string

	builder          string
	compressionType  string
	compressionLevel uint32
	libraryName      string
	collision        string
	workers          int
	playlistExt      string
	scratchDir       string
	noProgress       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "palpack",
		Short: "Pack an audio library and its playlists into a single portable .pal file",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/palpack/config.toml, then ./palpack.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress at info level")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every entry at debug level")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when done")

	rootCmd.AddCommand(newEncodeCmd(), newDecodeCmd(), newLsCmd())
	return rootCmd
}

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode <INPUT> <OUTPUT>",
		Short: "Encode an audio library into a .pal file",
		Args:  cobra.ExactArgs(2),
		Run:   runEncode,
	}
	encodeCmd.Flags().StringVarP(&builder, "builder", "b", config.BuilderDirectory, "Layout of the input library: directory or playlist")
	encodeCmd.Flags().StringVarP(&compressionType, "compression-type", "t", "none", "Compression applied to every track: none, gzip, lz4 or snappy")
	encodeCmd.Flags().Uint32VarP(&compressionLevel, "compression-level", "l", 0, "Compression level 0-9, used by gzip and lz4")
	encodeCmd.Flags().StringVar(&libraryName, "name", "", "Library name stored in the container (default: input directory name)")
	encodeCmd.Flags().StringVar(&collision, "collision", "merge", "What to do with two different tracks sharing a file name: merge, error or rename")
	encodeCmd.Flags().IntVar(&workers, "workers", 1, "Number of tracks compressed in parallel")
	encodeCmd.Flags().StringVar(&playlistExt, "playlist-ext", palpack.DefaultPlaylistExt, "Extension of playlist files for the playlist builder")
	encodeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars (shown by default on a terminal)")
	return encodeCmd
}

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode <INPUT> <OUTPUT>",
		Short: "Decode a .pal file back into an audio library",
		Args:  cobra.ExactArgs(2),
		Run:   runDecode,
	}
	decodeCmd.Flags().StringVarP(&builder, "builder", "b", config.BuilderDirectory, "Layout of the output library: directory or playlist")
	decodeCmd.Flags().StringVar(&scratchDir, "scratch-dir", "", "Keep decompressed tracks here instead of a temporary directory")
	decodeCmd.Flags().StringVar(&playlistExt, "playlist-ext", palpack.DefaultPlaylistExt, "Extension of playlist files for the playlist builder")
	decodeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars (shown by default on a terminal)")
	return decodeCmd
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <INPUT>",
		Short: "List the tracks in a .pal file without decompressing them",
		Args:  cobra.ExactArgs(1),
		Run:   runLs,
	}
}

// loadConfig reads the config file and lays explicitly set flags over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}
	if exists {
		logger.Debug("Loaded config from %s", resolved)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("builder") {
		cfg.Import.Builder = builder
	}
	if flags.Changed("compression-type") {
		cfg.Container.Compression = compressionType
	}
	if flags.Changed("compression-level") {
		cfg.Container.Level = compressionLevel
	}
	if flags.Changed("name") {
		cfg.Container.Name = libraryName
	}
	if flags.Changed("collision") {
		cfg.Import.Collision = collision
	}
	if flags.Changed("workers") {
		cfg.Write.Workers = workers
	}
	if flags.Changed("playlist-ext") {
		cfg.Import.PlaylistExtension = playlistExt
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = metricsFile
	}
}

func configureLogging(cfg *config.Config) error {
	switch {
	case debug:
		logger.SetLogLevel(logger.LogLevelDebug)
	case verbose:
		logger.SetLogLevel(logger.LogLevelInfo)
	default:
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		logger.SetLogLevel(level)
	}
	return nil
}

func newImporter(cfg *config.Config) palpack.Importer {
	opts := cfg.ImportOptions()
	if cfg.Import.Builder == config.BuilderPlaylist {
		return palpack.NewPlaylistImporter(opts)
	}
	return palpack.NewDirectoryImporter(opts)
}

func newExporter(cfg *config.Config, progress palpack.ProgressCallback) palpack.Exporter {
	opts := palpack.ExportOptions{
		PlaylistExt: cfg.Import.PlaylistExtension,
		Progress:    progress,
	}
	if cfg.Import.Builder == config.BuilderPlaylist {
		return palpack.NewPlaylistExporter(opts)
	}
	return palpack.NewDirectoryExporter(opts)
}

func runEncode(cmd *cobra.Command, args []string) {
	input, output := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(err)
	}
	d, err := cfg.Descriptor()
	if err != nil {
		fail(err)
	}

	rec := metrics.NewRecorder()
	bars := newProgressReporter(!noProgress, os.Stderr)
	opts := cfg.WriteOptions()
	opts.Progress = palpack.MultiProgress(bars.callback(), rec.Progress())

	start := time.Now()
	meta, err := encode(context.Background(), newImporter(cfg), input, output, d, cfg.Container.Name, opts)
	bars.finish()
	rec.ObserveOperation("encode", time.Since(start), err)
	if meta != nil {
		rec.ObserveMetadata(meta)
	}
	writeMetrics(rec, cfg.Metrics.Textfile)
	if err != nil {
		fail(err)
	}

	fmt.Println(summarize("Encoded", meta, time.Since(start)))
}

func runDecode(cmd *cobra.Command, args []string) {
	input, output := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(err)
	}

	rec := metrics.NewRecorder()
	bars := newProgressReporter(!noProgress, os.Stderr)
	progress := palpack.MultiProgress(bars.callback(), rec.Progress())

	start := time.Now()
	meta, err := decode(context.Background(), input, output, scratchDir, newExporter(cfg, progress), progress)
	bars.finish()
	rec.ObserveOperation("decode", time.Since(start), err)
	if meta != nil {
		rec.ObserveMetadata(meta)
	}
	writeMetrics(rec, cfg.Metrics.Textfile)
	if err != nil {
		fail(err)
	}

	fmt.Println(summarize("Decoded", meta, time.Since(start)))
}

func runLs(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(err)
	}

	rec := metrics.NewRecorder()
	start := time.Now()
	idx, err := palpack.ReadIndexFile(context.Background(), args[0])
	rec.ObserveOperation("ls", time.Since(start), err)
	if idx != nil {
		rec.ObserveMetadata(idx.Metadata)
	}
	writeMetrics(rec, cfg.Metrics.Textfile)
	if err != nil {
		fail(err)
	}

	fmt.Println(renderIndex(idx))
}

// encode imports input, stamps it with d and name and writes it to output.
func encode(ctx context.Context, im palpack.Importer, input, output string, d compression.Descriptor, name string, opts palpack.WriteOptions) (*palpack.Metadata, error) {
	meta, err := im.Import(ctx, input)
	if err != nil {
		return nil, err
	}

	meta.Compression = d
	meta.Name = name
	if meta.Name == "" {
		if abs, err := filepath.Abs(input); err == nil {
			meta.Name = filepath.Base(abs)
		}
	}

	if err := palpack.WriteFile(ctx, meta, output, opts); err != nil {
		return meta, err
	}
	return meta, nil
}

// decode reads input into a scratch store and exports it to output. With an
// empty scratchDir the decompressed tracks live in a temporary directory that
// is removed afterwards.
func decode(ctx context.Context, input, output, scratchDir string, ex palpack.Exporter, progress palpack.ProgressCallback) (*palpack.Metadata, error) {
	var scratch *storage.DirScratch
	if scratchDir == "" {
		tmp, cleanup, err := storage.NewTempScratch("palpack-*")
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := cleanup(); err != nil {
				logger.Warn("Failed to remove scratch directory %s: %v", tmp.Dir(), err)
			}
		}()
		scratch = tmp
	} else {
		dir, err := storage.NewDirScratch(scratchDir)
		if err != nil {
			return nil, err
		}
		scratch = dir
	}

	meta, err := palpack.ReadFile(ctx, input, scratch, palpack.ReadOptions{Progress: progress})
	if err != nil {
		return nil, err
	}
	if err := ex.Export(ctx, meta, output); err != nil {
		return meta, err
	}
	return meta, nil
}

func writeMetrics(rec *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := rec.WriteTextfile(path); err != nil {
		logger.Warn("Failed to write metrics to %s: %v", path, err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
