// Command deck-store-example loads a deck store configuration, opens the
// store it describes, and builds one manifest from it, logging progress
// events through logrus (to stderr by default) as they arrive.
//
// Building itself is sandboxed execution, explicitly out of this module's
// scope (spec.md §6); this example supplies a Builder that reports
// unimplemented rather than faking one, so the wiring below — config load,
// store open, progress streaming, build-log retrieval — is the part worth
// demonstrating.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ebkalderon/deck"
	"github.com/ebkalderon/deck/configuration"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
	"github.com/ebkalderon/deck/scheduler"
	"github.com/ebkalderon/deck/store"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := resolveConfiguration(flag.Arg(0))
	if err != nil {
		fatalf("configuration error: %v", err)
	}
	configureLogging(cfg)

	target, err := id.ParseManifestID(flag.Arg(1))
	if err != nil {
		fatalf("invalid manifest id %q: %v", flag.Arg(1), err)
	}

	store, err := deck.OpenFromConfig(cfg, unimplementedBuilder)
	if err != nil {
		fatalf("opening store: %v", err)
	}

	ctx := context.Background()
	for event := range store.BuildManifest(ctx, target) {
		if event.Err != nil {
			fatalf("build failed: %v", event.Err)
		}
		logProgress(*event.Progress)
	}

	if log, ok, err := store.GetBuildLog(ctx, target); err == nil && ok {
		fmt.Println("--- build log ---")
		fmt.Println(log)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "<config.yaml> <manifest-id>")
	flag.PrintDefaults()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func resolveConfiguration(path string) (*configuration.Configuration, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	cfg, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}

func configureLogging(cfg *configuration.Configuration) {
	level, err := logrus.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch cfg.Log.Formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
	default:
		logrus.Warnf("unsupported logging formatter %q, using default", cfg.Log.Formatter)
	}

	if len(cfg.Log.Fields) > 0 {
		logrus.SetReportCaller(false)
		logrus.WithFields(cfg.Log.Fields).Debug("configured static log fields")
	}
}

func unimplementedBuilder(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
	return nil, fmt.Errorf("no builder configured: building %q requires a caller-supplied scheduler.Builder", m.Name())
}

func logProgress(p scheduler.Progress) {
	switch p.Kind {
	case scheduler.KindBlocked:
		logrus.Infof("%s: blocked: %s", p.Package, p.Blocked.Description)
	case scheduler.KindDownloading:
		logrus.Infof("%s: downloading %s: %d bytes", p.Package, p.Download.Source, p.Download.DownloadedBytes)
	case scheduler.KindBuilding:
		logrus.Infof("%s: building: phase %d/%d", p.Package, p.Build.CurrentTask, p.Build.TotalTasks)
	case scheduler.KindInstalling:
		logrus.Infof("%s: installing: %s", p.Package, p.Install.Description)
	case scheduler.KindFinished:
		logrus.Infof("%s: finished", p.Package)
	}
}
