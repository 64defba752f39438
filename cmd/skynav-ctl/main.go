// Command skynav-ctl drives a running skynav daemon over its control API.
//
//	skynav-ctl [-endpoint host:port] <command> [args]
//
// Commands:
//
//	state
//	jd <julian-day>
//	rate <days-per-second>
//	now
//	faster|slower [-fine]
//	add-days <n> [-sidereal]
//	move <location-id> [-duration s] [-planet-duration s]
//	select <body>             (empty string clears)
//	track on|off
//	goto-selected
//	mount equatorial|altazimuth|toggle
//	look <altaz|equ|j2000> <x> <y> <z>
//	locations [planet]
//	settings key=value ...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/internal/control"
)

func main() {
	endpoint := flag.String("endpoint", "localhost:50061", "skynav control gRPC endpoint (host:port)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-call timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <command> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial %s: %v", *endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := dispatch(ctx, control.NewClient(conn), flag.Arg(0), flag.Args()[1:])
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(reply)
	if err != nil {
		log.Fatalf("encode reply: %v", err)
	}
	fmt.Println(string(out))
}

func dispatch(ctx context.Context, c *control.Client, cmd string, args []string) (*structpb.Struct, error) {
	switch cmd {
	case "state":
		return c.GetState(ctx)
	case "jd":
		v, err := floatArg(args, 0, "julian day")
		if err != nil {
			return nil, err
		}
		return c.SetJulianDay(ctx, v)
	case "rate":
		v, err := floatArg(args, 0, "rate")
		if err != nil {
			return nil, err
		}
		return c.SetTimeRate(ctx, v)
	case "now":
		return c.SetTimeNow(ctx)
	case "faster", "slower":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fine := fs.Bool("fine", false, "use the fine rate step")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return c.StepTimeRate(ctx, cmd == "faster", *fine)
	case "add-days":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		sidereal := fs.Bool("sidereal", false, "count sidereal days of the current planet")
		if err := fs.Parse(reorder(args)); err != nil {
			return nil, err
		}
		n, err := floatArg(fs.Args(), 0, "days")
		if err != nil {
			return nil, err
		}
		return c.AddDays(ctx, n, *sidereal)
	case "move":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		duration := fs.Float64("duration", core.DefaultMoveDuration, "transit duration in seconds")
		planet := fs.Float64("planet-duration", core.DefaultMoveDurationPlanetChange, "transit duration when the planet changes")
		if err := fs.Parse(reorder(args)); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return nil, fmt.Errorf("location id required")
		}
		return c.MoveObserver(ctx, strings.Join(fs.Args(), " "), *duration, *planet)
	case "select":
		return c.SelectBody(ctx, strings.Join(args, " "))
	case "track":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return nil, fmt.Errorf("want on or off")
		}
		return c.SetTracking(ctx, args[0] == "on")
	case "goto-selected":
		return c.MoveToSelected(ctx)
	case "mount":
		if len(args) != 1 {
			return nil, fmt.Errorf("mount mode required")
		}
		return c.SetMountMode(ctx, args[0])
	case "look":
		if len(args) != 4 {
			return nil, fmt.Errorf("want <frame> <x> <y> <z>")
		}
		var v [3]float64
		for i := range v {
			f, err := floatArg(args, i+1, "component")
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		return c.SetVisionDirection(ctx, args[0], v[0], v[1], v[2])
	case "locations":
		return c.ListLocations(ctx, strings.Join(args, " "))
	case "settings":
		changes, err := settingsArgs(args)
		if err != nil {
			return nil, err
		}
		return c.UpdateSettings(ctx, changes)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func floatArg(args []string, i int, what string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s required", what)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

// reorder moves flags ahead of positional arguments so "move Tokyo -duration 0"
// parses like "move -duration 0 Tokyo".
func reorder(args []string) []string {
	var flags, rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			if _, err := strconv.ParseFloat(a, 64); err == nil {
				rest = append(rest, a)
				continue
			}
			flags = append(flags, a)
			if !strings.Contains(a, "=") && i+1 < len(args) && a != "-sidereal" && a != "--sidereal" {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

// settingsArgs turns key=value pairs into an UpdateSettings request. Numbers
// and true/false are sent typed; anything else is sent as a string.
func settingsArgs(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("want key=value pairs")
	}
	changes := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad setting %q, want key=value", arg)
		}
		switch value {
		case "true", "false":
			changes[key] = value == "true"
			continue
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			changes[key] = f
		} else {
			changes[key] = value
		}
	}
	return changes, nil
}
