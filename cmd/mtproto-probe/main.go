// Command mtproto-probe exercises the transport core against a live DC:
// it runs key exchanges, pings sessions and inspects trusted keys.
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/logging"
	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
	"github.com/ZentaChain/zentalk-mtproto/pkg/storage"
)

type commandHandler func(command string) bool

var (
	app = kingpin.New("mtproto-probe", "Probe MTProto data centers.")

	configPath = app.Flag("config", "The configuration file.").Short('c').
			Envar("MTPROTO_CONFIG").String()
	addressFlag = app.Flag("address", "Override the DC multiaddr, e.g. /ip4/149.154.167.50/tcp/443.").String()
	dcFlag      = app.Flag("dc", "Override the DC id.").Int()
	testFlag    = app.Flag("test", "Use the test DCs.").Bool()
	verboseFlag = app.Flag("verbose", "Log at debug level.").Short('v').Bool()

	commandHandlers []commandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)

	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	for _, handler := range commandHandlers {
		if handler(command) {
			break
		}
	}
}

// loadConfig reads --config and applies the command line overrides
func loadConfig() *config.Config {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		kingpin.FatalIfError(err, "Unable to load config file")
	}

	if *addressFlag != "" {
		cfg.Address = *addressFlag
	}
	if *dcFlag != 0 {
		cfg.DC = *dcFlag
	}
	if *testFlag {
		cfg.TestMode = true
	}
	if *verboseFlag {
		cfg.Log.Level = "debug"
	}
	kingpin.FatalIfError(cfg.Validate(), "Invalid configuration")
	return cfg
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log, err := logging.New(cfg.Log)
	kingpin.FatalIfError(err, "Logging")
	return log
}

// openStore returns the persistent key store when one is configured
func openStore(cfg *config.Config) (network.KeyStore, func()) {
	if cfg.Store.Path == "" {
		return network.NewMemoryStore(), func() {}
	}
	db, err := storage.NewAuthKeyDB(cfg.Store.Path, cfg.Store.Password)
	kingpin.FatalIfError(err, "Unable to open key store")
	return db, func() { db.Close() }
}
