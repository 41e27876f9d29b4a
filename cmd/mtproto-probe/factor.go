package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
)

var (
	factorCommand = app.Command("factor", "Split a pq challenge into its prime factors.")
	factorPQ      = factorCommand.Arg("pq", "The 64-bit product, decimal or 0x hex.").Required().Uint64()
)

func doFactor() {
	start := time.Now()
	p, q, err := crypto.FactorizePQ(*factorPQ, rand.Reader)
	kingpin.FatalIfError(err, "Factorization")

	fmt.Printf("p = %d\nq = %d\n", p, q)
	fmt.Printf("took %s\n", time.Since(start).Round(time.Microsecond))
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		if command != factorCommand.FullCommand() {
			return false
		}
		doFactor()
		return true
	})
}
