package main

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
)

var (
	keysCommand = app.Command("keys", "List trusted server key fingerprints.")
	keysFile    = keysCommand.Flag("file", "Read PEM keys from this file instead of the built-in set.").ExistingFile()
)

func doKeys() {
	path := *keysFile
	if path == "" && *configPath != "" {
		path = loadConfig().PublicKeysFile
	}

	keys := keyring.Default()
	if path != "" {
		var err error
		keys, err = keyring.LoadFile(path)
		kingpin.FatalIfError(err, "Unable to load keys")
	}

	for _, fp := range keys.Fingerprints() {
		key, _ := keys.Find(fp)
		fmt.Printf("%016x  %d bits\n", fp, key.Size()*8)
	}
	fmt.Printf("%d keys\n", keys.Len())
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		if command != keysCommand.FullCommand() {
			return false
		}
		doKeys()
		return true
	})
}
