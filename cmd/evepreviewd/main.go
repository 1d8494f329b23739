// Package main is the preview-manager core's entrypoint. It has no GUI of
// its own: a configuration GUI process spawns it as
// "evepreviewd daemon --ipc-server <name>" and talks to it over the socket
// that flag names.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/h0lylag/evepreviewd/internal/config"
	"github.com/h0lylag/evepreviewd/internal/dispatcher"
	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/h0lylag/evepreviewd/internal/hotkey"
	"github.com/h0lylag/evepreviewd/internal/ipc"
	"github.com/h0lylag/evepreviewd/internal/selfupdate"
	"github.com/h0lylag/evepreviewd/internal/x11"
)

var appName = "evepreviewd"
var version = "unknown"

// defaultScaleReference/defaultThumbnailDimensions seed a brand-new config:
// a 1920x1080 reference screen with 320x180 (16:9, one-sixth scale)
// thumbnails, scaled per-screen by config.Profile.DefaultThumbnailSize.
var (
	defaultScaleReference     = geom.Dimensions{Width: 1920, Height: 1080}
	defaultThumbnailDimensions = geom.Dimensions{Width: 320, Height: 180}
)

func main() {
	opt := parseCLIOpts()

	if opt.debug {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	if opt.checkUpdate {
		runCheckUpdate()
		return
	}

	args := flag.Args()
	if len(args) == 0 || args[0] != "daemon" {
		printUsage()
		os.Exit(1)
	}

	daemonOpt := parseDaemonOpts(args[1:])
	if err := runDaemon(daemonOpt); err != nil {
		log.Fatalf("%s: %v\n", appName, err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "%s is the preview-manager core; a configuration GUI launches it, it is not meant to be run directly.\n", appName)
	fmt.Fprintf(os.Stderr, "Usage: %s daemon --ipc-server <name>\n", appName)
}

func runCheckUpdate() {
	res, err := selfupdate.Check(version)
	if err != nil {
		fmt.Println("Cannot look for updates right now.")
		return
	}
	if res.Available {
		fmt.Printf("New version available: %s (running %s)\n", res.Latest, res.Current)
	} else {
		fmt.Println("No update available")
	}
}

func runDaemon(opt daemonOpts) error {
	disp, err := x11.Open()
	if err != nil {
		return fmt.Errorf("connect to display server: %w", err)
	}
	defer disp.Close()

	if err := disp.WatchRoot(); err != nil {
		return fmt.Errorf("watch root window: %w", err)
	}

	cfgPath := opt.configPath
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	cfg, err := loadOrInitConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	listener, err := ipc.Listen(socketPath(opt.ipcServer))
	if err != nil {
		return fmt.Errorf("open ipc socket: %w", err)
	}
	defer listener.Close()

	outbound := make(chan ipc.Outbound, 16)
	d := dispatcher.New(disp, cfg, uint32(os.Getpid()), outbound)

	xEvents := make(chan any, 64)
	stop := make(chan struct{})
	go func() {
		if err := disp.Pump(xEvents, stop); err != nil {
			log.Printf("%s: display-server connection lost: %v\n", appName, err)
			close(xEvents)
		}
	}()

	inbound := make(chan ipc.Inbound, 8)
	go runIPCPump(listener, inbound, outbound)

	// No OS-level global-hotkey backend is wired here (out of scope per
	// spec); the dispatcher still selects on this channel, it just never
	// fires without a listener feeding it.
	var hotkeys hotkey.Channel = make(chan hotkey.Command)

	log.Printf("%s starting. Version: %s\n", appName, version)
	err = d.Run(xEvents, inbound, hotkeys)
	close(stop)
	return err
}

// runIPCPump accepts one GUI connection at a time, forwarding its inbound
// frames onto inbound and draining outbound notifications onto it for as
// long as it stays connected. Notifications that arrive with nobody
// connected are left for emitOutbound's non-blocking send to drop.
func runIPCPump(listener *ipc.Listener, inbound chan<- ipc.Inbound, outbound <-chan ipc.Outbound) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("%s: ipc accept: %v\n", appName, err)
			return
		}

		done := make(chan struct{})
		go func() {
			for {
				select {
				case msg := <-outbound:
					if err := conn.WriteOutbound(msg); err != nil {
						log.Printf("%s: ipc write: %v\n", appName, err)
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			msg, err := conn.ReadInbound()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Printf("%s: ipc read: %v\n", appName, err)
				}
				break
			}
			inbound <- msg
		}
		close(done)
		conn.Close()
	}
}

func loadOrInitConfig(path string) (*config.DaemonConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("%s: no config at %s, using defaults\n", appName, path)
		return defaultConfig(), nil
	}
	return config.Decode(path)
}

func defaultConfig() *config.DaemonConfig {
	return &config.DaemonConfig{
		Profile: config.Profile{
			Name:                   "default",
			CharacterThumbnails:    make(map[string]config.CharacterSettings),
			CustomSourceThumbnails: make(map[string]config.CharacterSettings),
			SkippedIdentities:      make(map[string]bool),
			ScreenScaleReference:   defaultScaleReference,
			DefaultDimensions:      defaultThumbnailDimensions,
		},
		ClientMinimizeOnSwitch:          true,
		ThumbnailHideNotFocused:         false,
		ThumbnailAutoSavePosition:       true,
		ThumbnailPreservePositionOnSwap: true,
		ThumbnailSnapThreshold:          12,
	}
}

func defaultConfigPath() string {
	dir := xdgOrFallback("XDG_CONFIG_HOME", os.Getenv("HOME")+"/.config")
	return dir + "/evepreviewd/config.toml"
}

func socketPath(name string) string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return dir + "/" + name + ".sock"
}

func xdgOrFallback(xdg, fallback string) string {
	dir := os.Getenv(xdg)
	if dir == "" {
		return fallback
	}
	return dir
}
