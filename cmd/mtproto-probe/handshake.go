package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
)

var (
	handshakeCommand = app.Command("handshake", "Run a fresh key exchange and print the result.")
	handshakeTemp    = handshakeCommand.Flag("temp", "Request a temporary key with this lifetime.").Duration()
	handshakeSave    = handshakeCommand.Flag("save", "Store the new key in the configured key store.").Bool()
)

func doHandshake() {
	cfg := loadConfig()
	log := newLogger(cfg)
	if *handshakeTemp > 0 {
		cfg.TempKeyTTL = config.Duration(*handshakeTemp)
	}

	// an empty memory store forces the exchange
	mem := network.NewMemoryStore()
	ctx := context.Background()

	c, err := network.Dial(ctx, cfg, network.Options{Store: mem, Log: log})
	kingpin.FatalIfError(err, "Key exchange failed")
	st := c.Status()
	c.Close()

	key, err := mem.Load(cfg.DC, cfg.TestMode)
	kingpin.FatalIfError(err, "Key exchange left no key")

	fmt.Printf("DC:          %d (test=%v)\n", st.DC, st.TestMode)
	fmt.Printf("Address:     %s\n", st.Address)
	fmt.Printf("Key id:      %s\n", st.KeyID)
	fmt.Printf("Server salt: %016x\n", uint64(key.ServerSalt))
	fmt.Printf("Time offset: %ds\n", key.TimeOffset)
	if !key.ExpiresAt.IsZero() {
		fmt.Printf("Expires at:  %s\n", key.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}

	if *handshakeSave {
		store, closeStore := openStore(cfg)
		defer closeStore()
		if _, ok := store.(*network.MemoryStore); ok {
			kingpin.Fatalf("--save needs store.path in the config file")
		}
		kingpin.FatalIfError(store.Save(key), "Unable to save key")
		fmt.Printf("Saved to %s\n", cfg.Store.Path)
	}
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		if command != handshakeCommand.FullCommand() {
			return false
		}
		doHandshake()
		return true
	})
}
