// gltftool converts between YAML scene descriptions, Ragnarok Online models and glTF 2.0.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export":
		cmdExport(args)
	case "import":
		cmdImport(args)
	case "info":
		cmdInfo(args)
	case "rsm":
		cmdRSM(args)
	case "models":
		cmdModels(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltftool - glTF 2.0 scene converter

Usage:
  gltftool <command> [options]

Commands:
  export <scene.yaml> <out.gltf|glb>     Export a YAML scene to glTF
  import <in.gltf|glb> <scene.yaml>      Import glTF into a YAML scene
  info <in.gltf|glb>                     Show document summary
  rsm <model.rsm> <out.gltf|glb>         Convert a Ragnarok Online model
  models <file.grf> [pattern]            List models in a GRF archive

Common options:
  -config <file>   Config file (default ./gltftool.yaml, then the user config dir)
  -debug           Enable debug logging
  -log <file>      Also write logs to a rotating file
  -symmetric       Same axis convention on export and import

Examples:
  gltftool export scenes/prontera.yaml out/prontera.gltf
  gltftool import -assets assets/textures out/prontera.glb scenes/prontera2.yaml
  gltftool models data.grf "*fountain*"
  gltftool rsm -grf data.grf data/model/prontera/fountain.rsm out/fountain.glb`)
}

// setup parses args, loads the config and starts logging.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fail(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(err)
	}
	return cfg
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "Usage: gltftool "+line)
	os.Exit(1)
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
