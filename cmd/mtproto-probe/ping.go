package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
)

var (
	pingCommand  = app.Command("ping", "Open a session and measure ping round trips.")
	pingCount    = pingCommand.Flag("count", "Number of pings.").Short('n').Default("4").Int()
	pingInterval = pingCommand.Flag("interval", "Delay between pings.").Default("1s").Duration()
)

func doPing() {
	cfg := loadConfig()
	log := newLogger(cfg)
	store, closeStore := openStore(cfg)
	defer closeStore()

	ctx := context.Background()
	c, err := network.Dial(ctx, cfg, network.Options{Store: store, Log: log})
	kingpin.FatalIfError(err, "Unable to connect")
	defer c.Close()

	st := c.Status()
	fmt.Printf("Session %016x with key %s\n", uint64(st.Session.SessionID), st.KeyID)

	var total time.Duration
	var ok int
	for i := 0; i < *pingCount; i++ {
		if i > 0 {
			time.Sleep(*pingInterval)
		}
		rtt, err := c.Ping(ctx)
		if err != nil {
			fmt.Printf("ping %d: %v\n", i+1, err)
			continue
		}
		ok++
		total += rtt
		fmt.Printf("ping %d: %s\n", i+1, rtt.Round(time.Microsecond))
	}

	if ok > 0 {
		fmt.Printf("%d/%d answered, avg %s\n", ok, *pingCount, (total / time.Duration(ok)).Round(time.Microsecond))
	}
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		if command != pingCommand.FullCommand() {
			return false
		}
		doPing()
		return true
	})
}
