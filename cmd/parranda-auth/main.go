package main

// @title           Parranda Auth API
// @version         1.0
// @description     Identity and session service: registration, password login, JWT access and refresh tokens, and session management.

// @contact.name   Parranda OSS
// @contact.url    https://github.com/custodia-labs/parranda-auth/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	_ "github.com/custodia-labs/parranda-auth/docs"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
