// Command mtproto-status keeps a supervised session to one DC open and
// serves its status, trusted keys and metrics over HTTP.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ZentaChain/zentalk-mtproto/pkg/api"
	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
	"github.com/ZentaChain/zentalk-mtproto/pkg/logging"
	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/storage"
)

var (
	app = kingpin.New("mtproto-status", "Supervised MTProto session with a status API.")

	configPath = app.Flag("config", "The configuration file.").Short('c').
			Envar("MTPROTO_CONFIG").String()
	apiPort   = app.Flag("api-port", "Override the status API port.").Int()
	purgeFlag = app.Flag("purge-expired", "Drop expired keys from the store on start.").Default("true").Bool()
)

func main() {
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))
	kingpin.FatalIfError(run(), "mtproto-status")
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		kingpin.FatalIfError(err, "Unable to load config file")
	}
	if *apiPort != 0 {
		cfg.API.Port = *apiPort
	}
	kingpin.FatalIfError(cfg.Validate(), "Invalid configuration")

	log, err := logging.New(cfg.Log)
	kingpin.FatalIfError(err, "Logging")

	keys := keyring.Default()
	if cfg.PublicKeysFile != "" {
		keys, err = keyring.LoadFile(cfg.PublicKeysFile)
		kingpin.FatalIfError(err, "Unable to load public keys")
	}

	primes := prime.Default()
	opts := network.Options{Keys: keys, Primes: primes, Log: log}
	if cfg.Store.Path != "" {
		db, err := storage.NewAuthKeyDB(cfg.Store.Path, cfg.Store.Password)
		kingpin.FatalIfError(err, "Unable to open key store")
		defer db.Close()

		if *purgeFlag {
			n, err := db.PurgeExpired(time.Now())
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired keys")
			} else if n > 0 {
				log.WithField("count", n).Info("Purged expired keys")
			}
		}
		opts.Store = db
	}

	sup := network.NewSupervisor(cfg, opts)
	srv, err := api.NewServer(api.Deps{Monitor: sup, Keys: keys, Primes: primes, Log: log}, cfg.API)
	kingpin.FatalIfError(err, "Unable to create status API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"dc":      cfg.DC,
		"address": cfg.Address,
		"api":     cfg.API.Port,
	}).Info("Starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(ctx) })
	g.Go(func() error { return srv.Start(ctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("Shut down")
	return err
}
