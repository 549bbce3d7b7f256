// Command wasmbench drives a WebAssembly guest module as a multi-threaded
// benchmark on one of the compiled-in engines.
//
//	wasmbench run --runtime wazero --threads 4 --time 10s guest.wasm
//	wasmbench command prepare guest.wasm
//	wasmbench engines
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
