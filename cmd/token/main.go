// Command token issues access tokens signed with the server's JWT secret.
package main

import (
	"flag"
	"fmt"
	"os"

	"contentgen/internal/config"
	"contentgen/internal/utils"
)

func main() {
	configFile := flag.String("config", "./config/config.yaml", "path to the configuration file")
	userID := flag.Uint("user", 0, "user id to embed in the token")
	username := flag.String("name", "", "user name to embed in the token")
	reviewer := flag.Bool("reviewer", false, "grant the reviewer role")
	flag.Parse()

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "token: -user is required")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}

	jwtManager, err := utils.NewJWTManager(cfg.JWT.TokenOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
	token, err := jwtManager.GenerateToken(uint(*userID), *username, *reviewer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
