package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/numbridge/config"
	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/linker"
	"github.com/wippyai/numbridge/loader"
	"github.com/wippyai/numbridge/resource"
	"github.com/wippyai/numbridge/runtime"
	"github.com/wippyai/numbridge/value"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML configuration file")
		evalSrc     = flag.String("e", "", "Source to evaluate in Main")
		callPath    = flag.String("call", "", "Dotted path of a function to invoke")
		callArgs    = flag.String("args", "", "Arguments for -call as a YAML flow list, e.g. [1, \"x\", [1.5, 2]]")
		importPath  = flag.String("import", "", "Module to import before -call")
		interactive = flag.Bool("i", false, "Interactive mode")
	)
	flag.Parse()

	if *evalSrc == "" && *callPath == "" && *importPath == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: bridge [-config file] -e <source>")
		fmt.Fprintln(os.Stderr, "       bridge [-config file] [-import path] -call <path> [-args yaml]")
		fmt.Fprintln(os.Stderr, "       bridge [-config file] -i  (interactive mode)")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rt, eng, err := setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	if *interactive {
		if err := runInteractive(rt, eng); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(rt, *evalSrc, *importPath, *callPath, *callArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup wires logging, the engine and the bridge from cfg.
func setup(cfg *config.Config) (*runtime.Runtime, *engine.Engine, error) {
	log, err := cfg.BuildLogger()
	if err != nil {
		return nil, nil, err
	}
	engine.SetLogger(log.Named("engine"))
	linker.SetLogger(log.Named("linker"))
	resource.SetLogger(log.Named("resource"))
	runtime.SetLogger(log.Named("runtime"))

	fl := loader.NewFileLoader(cfg.Engine.LoadPath...)
	fl.Extension = cfg.Loader.Extension

	opts := append(cfg.EngineOptions(), engine.WithLoader(fl), engine.WithOutput(os.Stdout))
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	fl.Message = func(path string) string {
		return eng.FormatDiagnostic("ArgumentError", path+" not found in path")
	}

	ropts := []runtime.Option{runtime.WithLoader(fl)}
	if cfg.Runtime.Cleanup {
		ropts = append(ropts, runtime.WithCleanup())
	}
	rt, err := runtime.New(eng, ropts...)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("bridge ready",
		zap.String("version", eng.Version().String()),
		zap.Strings("load_path", cfg.Engine.LoadPath))
	return rt, eng, nil
}

func run(rt *runtime.Runtime, src, importPath, callPath, callArgs string) error {
	ctx := context.Background()

	if src != "" {
		v, err := rt.Eval(ctx, src)
		if err != nil {
			return err
		}
		fmt.Println(format(v))
	}

	if importPath != "" {
		mod, err := rt.Import(ctx, importPath)
		if err != nil {
			return err
		}
		fmt.Printf("Module: %s\n", mod.Name())
		fmt.Printf("Exports: %s\n", strings.Join(mod.Members(), ", "))
	}

	if callPath != "" {
		args, err := parseArgs(callArgs)
		if err != nil {
			return err
		}
		v, err := rt.Invoke(ctx, callPath, args...)
		if err != nil {
			return err
		}
		fmt.Println(format(v))
	}
	return nil
}

// parseArgs reads a YAML flow list. JSON arrays parse the same way.
func parseArgs(s string) ([]value.Value, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var raw []any
	if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	var convErr error
	args := lo.Map(raw, func(x any, i int) value.Value {
		v, err := value.FromGo(x)
		if err != nil && convErr == nil {
			convErr = fmt.Errorf("arg %d: %w", i, err)
		}
		return v
	})
	return args, convErr
}

func format(v value.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.String()
}
