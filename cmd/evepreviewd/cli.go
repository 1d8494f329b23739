package main

import "flag"

// CLIOpts holds the top-level flags parsed before the "daemon"
// subcommand's own arguments.
type CLIOpts struct {
	debug       bool
	checkUpdate bool
}

func parseCLIOpts() CLIOpts {
	var opt CLIOpts
	flag.BoolVar(&opt.debug, "v", false, "Verbose output (print logs to stderr)")
	flag.BoolVar(&opt.debug, "debug", false, "Same as -v")
	flag.BoolVar(&opt.checkUpdate, "c", false, "Check if an update is available (but do not update)")
	flag.Parse()
	return opt
}

// daemonOpts are the "daemon" subcommand's own flags.
type daemonOpts struct {
	ipcServer  string
	configPath string
}

func parseDaemonOpts(args []string) daemonOpts {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	var opt daemonOpts
	fs.StringVar(&opt.ipcServer, "ipc-server", "evepreviewd", "name of the unix-domain socket exposed to the configuration GUI")
	fs.StringVar(&opt.configPath, "config", "", "path to a TOML config file to load at startup (defaults under $XDG_CONFIG_HOME)")
	fs.Parse(args)
	return opt
}
