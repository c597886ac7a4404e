// sceneflat - flatten a glTF scene into a hex text export.
//
// The selected root nodes of the scene are exploded recursively into
// instances and parts, recentered on the origin marker, and written as a
// line-oriented record file that round-trips every float bit for bit.
//
// Preview controls (-view):
//
//	Mouse wheel - Zoom in/out
//	W/S/A/D     - Orbit (arrow keys work too)
//	Space       - Spin
//	B           - Toggle bounding box
//	R           - Reset view
//	Esc/Q       - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/export"
	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/models"
	"github.com/taigrr/sceneflat/pkg/scene"
)

// DefaultExt is appended to the input name when no output path is given.
const DefaultExt = ".flat"

var (
	outPath    = flag.String("o", "", "Output path (default <input>"+DefaultExt+")")
	configPath = flag.String("config", "", "Path to a TOML config file")
	envPath    = flag.String("env", ".env", "Path to a .env file")
	lineWidth  = flag.Int("width", 0, "Maximum triangle record width (overrides config)")
	comments   = flag.Bool("comments", true, "Append decimal comments to transform rows (overrides config)")
	selectList = flag.String("select", "", "Comma separated root node names to export (default all)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	watch      = flag.Bool("watch", false, "Re-export whenever the input changes")
	viewOut    = flag.Bool("view", false, "Preview the export in the terminal")
	pngPath    = flag.String("png", "", "Write a preview snapshot of the export to a PNG file")
	targetFPS  = flag.Int("fps", 30, "Preview FPS")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sceneflat - glTF scene flattener\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sceneflat [options] <scene.glb|scene.gltf>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nPreview controls:\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Orbit\n")
		fmt.Fprintf(os.Stderr, "  Space       - Spin\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle bounding box\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  Esc/Q       - Quit\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options is everything a single export needs.
type options struct {
	input  string
	output string
	roots  []string
	cfg    config.Config
}

func run(input string) error {
	if err := config.LoadDotEnv(*envPath); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *viewOut {
		if err := checkFPS(*targetFPS); err != nil {
			return err
		}
	}

	logger, err := log.NewLogger(cfg.Log.Development, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	opts := options{
		input:  input,
		output: outputPath(input, *outPath),
		roots:  splitNames(*selectList),
		cfg:    cfg,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *watch {
		return watchInput(ctx, opts, logger)
	}

	if _, err := exportOnce(opts, logger); err != nil {
		return err
	}

	if *pngPath != "" {
		if err := snapshot(opts.output, *pngPath); err != nil {
			return err
		}
		logger.Infof("Wrote preview %s", *pngPath)
	}
	if *viewOut {
		return view(ctx, opts.output, *targetFPS)
	}
	return nil
}

// loadConfig reads the config file and environment, then applies the flags
// that were set explicitly on the command line.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Export.MaxLineWidth = *lineWidth
		case "comments":
			cfg.Export.DecimalComments = *comments
		case "debug":
			cfg.Log.Debug = *debug
		}
	})
	return cfg, config.Validate(cfg)
}

// exportOnce loads the input scene and writes one export. Non-fatal problems
// are logged as warnings and summarized; only fatal errors are returned.
func exportOnce(opts options, logger *log.Logger) (*export.Result, error) {
	doc, err := scene.NewGLTFLoader().Load(opts.input)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	if len(opts.roots) > 0 {
		doc.SelectNamed(append([]string{opts.cfg.Export.OriginName}, opts.roots...)...)
	}

	res, err := export.New(doc, models.NewKernel(), opts.cfg.Export, logger).ExportFile(opts.output)
	if err != nil {
		if errors.Is(err, export.ErrCyclicBlock) || errors.Is(err, export.ErrTooDeep) {
			logger.Errorf("Export aborted, no temporary objects were left behind: %v", err)
		}
		return res, err
	}
	if left := doc.Temporaries(); left != 0 {
		logger.Warnf("WARNING: %d temporary object(s) left in the document", left)
	}

	report := res.Report()
	logger.Infof("Wrote %s: %d instance(s), %d part(s), %d material(s), %d triangle(s)",
		res.Output, res.Instances, res.Parts, res.Materials, res.Triangles)
	if len(report.Events) > 0 {
		logger.Infof("%d skipped, %d renamed, %d other warning(s)",
			report.Count(export.EventSkip), report.Count(export.EventRename),
			len(report.Events)-report.Count(export.EventSkip)-report.Count(export.EventRename))
	}
	return res, nil
}

// checkFPS rejects frame rates the preview ticker cannot run at.
func checkFPS(fps int) error {
	if fps <= 0 {
		return fmt.Errorf("-fps must be positive, got %d", fps)
	}
	return nil
}

// outputPath returns out, or the input path with its extension replaced by
// DefaultExt.
func outputPath(input, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + DefaultExt
}

func splitNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
