package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/log"
)

// Exporter runs complete exports against a host document.
type Exporter struct {
	host   Host
	kernel Kernel
	cfg    config.Export
	logger *log.Logger
}

// Result summarizes one run.
type Result struct {
	Scene     *Scene
	Selection *Selection
	Output    string

	Instances int
	Parts     int
	Materials int
	Triangles int
	Elapsed   time.Duration
}

// Report returns the events of the run.
func (r *Result) Report() *Report {
	if r.Scene == nil {
		return &Report{}
	}
	return r.Scene.Report
}

// New creates an Exporter.
func New(host Host, kernel Kernel, cfg config.Export, logger *log.Logger) *Exporter {
	return &Exporter{
		host:   host,
		kernel: kernel,
		cfg:    cfg,
		logger: logger,
	}
}

// ExportFile exports the host selection to path. The file is created before
// the host is touched, so an unwritable destination leaves the document
// unchanged. A partially written file is left in place on failure.
func (e *Exporter) ExportFile(path string) (*Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}

	res, err := e.Export(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if res != nil {
		res.Output = path
	}
	return res, err
}

// Export exports the host selection to w.
func (e *Exporter) Export(w io.Writer) (*Result, error) {
	start := time.Now()

	sel, err := Ingest(e.host, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}

	sc, err := NewFlattener(e.host, e.kernel, e.cfg, e.logger).Flatten(sel.Copies)
	res := &Result{Scene: sc, Selection: sel}
	if err != nil {
		return res, fmt.Errorf("flatten: %w", err)
	}

	if err := NewSerializer(w, e.cfg, e.logger).Serialize(e.host, sc); err != nil {
		return res, err
	}

	res.Instances = len(sc.Instances)
	res.Parts = len(sc.Parts)
	res.Materials = sc.Materials.Len()
	res.Triangles = sc.Triangles()
	res.Elapsed = time.Since(start)

	e.logger.Infow("export complete",
		"instances", res.Instances,
		"parts", res.Parts,
		"materials", res.Materials,
		"triangles", res.Triangles,
		"warnings", len(sc.Report.Events),
		"elapsed", res.Elapsed,
	)
	return res, nil
}
