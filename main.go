package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/treemana/fakedns/config"
	"github.com/treemana/fakedns/listener"
	"github.com/treemana/fakedns/log"
	"github.com/treemana/fakedns/probe"
	"github.com/treemana/fakedns/util"
)

var (
	configPath = flag.String("c", "fakedns.yaml", "configuration file, .json .yaml .yml or .toml")
	probeAddr  = flag.String("probe", "", "query a running listener at host:port and exit")
	probeNet   = flag.String("net", "udp", "probe network, udp or tcp")
	probeName  = flag.String("name", "google.com", "probe query name")
)

func main() {
	flag.Parse()

	if *probeAddr != "" {
		os.Exit(runProbe())
	}

	os.Exit(run())
}

func run() int {
	option, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("config load error", err)
		return 1
	}

	// init log
	if err = log.Init(option.Log); err != nil {
		fmt.Println("log init error", err)
		return 1
	}
	defer func() {
		_ = log.Logger.Sync()
		time.Sleep(time.Second)
	}()

	host := &util.Host{}
	listeners := make([]*listener.Listener, 0, len(option.Listeners))
	defer func() {
		for _, l := range listeners {
			if err := l.Stop(); err != nil {
				log.Sugar.Errorf("%s stop error=[%+v]", l.Name(), err)
			}
		}
	}()

	for _, lc := range option.Listeners {
		l := listener.New(lc, host)
		if err = l.Start(); err != nil {
			log.Sugar.Error(err)
			return 1
		}
		listeners = append(listeners, l)
		log.Sugar.Infof("%s listening on %s/%s", l.Name(), lc.Protocol, l.Addr())
	}

	// fakedns is running until os exit
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sc
	log.Sugar.Infof("signal %d %s", s, s)

	return 0
}

func runProbe() int {
	log.InitDevelop()

	p, err := probe.New(*probeNet, *probeAddr, log.Named("probe"))
	if err != nil {
		fmt.Println("probe error", err)
		return 1
	}

	var failed bool
	for _, result := range p.Run(context.Background(), *probeName) {
		fmt.Println(result)
		failed = failed || result.Err != nil
	}

	if failed {
		return 1
	}
	return 0
}
