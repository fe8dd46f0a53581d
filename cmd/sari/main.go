// Command sari runs the WhatsApp order pipeline.
//
//	@title						Sari API
//	@version					1.0
//	@description				WhatsApp order pipeline: Green API webhook intake and operator endpoints.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	WebhookToken
//	@in							header
//	@name						Authorization
//	@description				Bearer token configured as WEBHOOK_TOKEN
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
