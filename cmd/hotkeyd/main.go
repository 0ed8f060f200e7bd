// hotkeyd - global hotkey gesture daemon
//
// hotkeyd watches one binding, either the dedicated fn key or a key plus
// modifier combination, and reports hold, tap and double-tap gestures:
//
//	hotkeyd run             Watch the binding and log every gesture
//	hotkeyd bind <spec>     Save the binding used by the next run
//	hotkeyd unbind          Forget the saved binding
//	hotkeyd show            Show configuration and binding history
//	hotkeyd keys            List key and modifier names
package main

import (
	"fmt"
	"os"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "run":
		err = cmdRun(os.Args[2:])
	case "bind":
		err = cmdBind(os.Args[2:])
	case "unbind":
		err = cmdUnbind(os.Args[2:])
	case "show":
		err = cmdShow(os.Args[2:])
	case "keys":
		cmdKeys()
	case "version":
		fmt.Printf("hotkeyd %s\n", Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`hotkeyd - Global Hotkey Gestures

USAGE:
    hotkeyd <command> [options]

COMMANDS:
    run                 Watch the binding and log every gesture
    bind <spec>         Save the binding used by the next run
    unbind              Forget the saved binding
    show                Show configuration, binding and history
    keys                List key and modifier names for binding specs
    version             Print the version
    help                Show this help message

BINDING SPECS:
    fn                  The dedicated function (globe) key
    ctrl+option+space   A key with modifiers (cmd, option, shift, ctrl)
    shift+0x7a          A raw virtual key code

GESTURES:
    hold-start / hold-end   Key held past the hold threshold, then released
    single-tap              Short press with no second press in the window
    double-tap              Two short presses within the window

The binding is taken from -binding, then the config file, then the last
'hotkeyd bind'. Timing changes in the config file apply while running.`)
}
