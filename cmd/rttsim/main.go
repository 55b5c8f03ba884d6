package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rtt.go/pkg/bridge/mqtt"
	"github.com/robotalks/rtt.go/pkg/bridge/websocket"
	"github.com/robotalks/rtt.go/pkg/capture"
	"github.com/robotalks/rtt.go/pkg/cli/sh"
	"github.com/robotalks/rtt.go/pkg/env"
	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/panicrtt"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/probe"
	"github.com/robotalks/rtt.go/pkg/sim"
)

const (
	ramBase = 0x20000000
	ramSize = 64 * 1024
)

var (
	fwConfig  = sim.DefaultConfig()
	withShell bool
)

func init() {
	env.SetupFlags()
	flag.DurationVar(&fwConfig.Heartbeat, "heartbeat", fwConfig.Heartbeat, "Firmware heartbeat interval, 0 disables.")
	flag.DurationVar(&fwConfig.PanicAfter, "panic-after", fwConfig.PanicAfter, "Make the firmware panic after running this long.")
	flag.IntVar(&fwConfig.TerminalSize, "terminal-size", fwConfig.TerminalSize, "Terminal up buffer size.")
	flag.BoolVar(&withShell, "shell", withShell, "Run the interactive shell instead of printing to stdout.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.Default()
	if err := env.Err(); err != nil {
		glog.Exit(err)
	}
	if err := conf.Validate(); err != nil {
		glog.Exit(err)
	}
	fwConfig.Mode = conf.Mode

	mem := rtt.NewMemory(ramBase, ramSize)
	fw, err := sim.Boot(mem, fwConfig)
	if err != nil {
		glog.Exitf("boot: %v", err)
	}

	runner := fx.NewRunner().HandleSignals()
	// a faulted firmware stays halted until the simulation stops.
	panicrtt.Halt = func() { <-runner.Context.Done() }

	p, err := probe.Attach(runner.Context, mem, mem.Base(), uint32(mem.Size()), conf.PollInterval)
	if err != nil {
		glog.Exitf("attach: %v", err)
	}

	var handlers probe.Fanout
	var tail *sh.Tail
	if withShell || sh.EvalOnly() {
		tail = sh.NewTail(0)
		handlers = append(handlers, tail)
	} else {
		handlers = append(handlers, probe.CopyTo(os.Stdout))
	}

	if conf.CaptureDB != "" {
		rec, err := capture.Open(conf.CaptureDB)
		if err != nil {
			glog.Exitf("capture: %v", err)
		}
		defer rec.Close()
		handlers = append(handlers, rec)
	}

	if conf.MQTTURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTURL, conf.MQTTClientID())
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		bridge := mqtt.NewBridge(q, p)
		bridge.Interval = conf.PollInterval
		q.OnConnect = func(*mqtt.Queue) {
			if err := bridge.PublishMeta(); err != nil {
				glog.Warningf("publish meta: %v", err)
			}
		}
		if err = q.Connect(); err != nil {
			glog.Exitf("mqtt connect %s: %v", conf.MQTTURL, err)
		}
		defer q.Close()
		handlers = append(handlers, bridge)
		runner.Go(bridge)
	}

	if conf.WSAddr != "" {
		hub := websocket.NewHub(p)
		handlers = append(handlers, hub)
		srv := &http.Server{Addr: conf.WSAddr, Handler: hub.Handler()}
		runner.Go(fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
			glog.Infof("websocket listening on %s", conf.WSAddr)
			err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		})))
	}

	runner.Go(fw, &probe.Poller{Probe: p, Interval: conf.PollInterval, Handler: handlers})

	if tail != nil {
		s := sh.New(p, tail)
		runner.Go(fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
			if args := flag.Args(); len(args) > 0 {
				// let the firmware produce something before a one-shot command.
				time.Sleep(conf.PollInterval)
				if err := p.PollOnce(ctx, tail); err != nil {
					return err
				}
				return s.Run(args...)
			}
			return s.Run()
		})))
	}

	if err = runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
