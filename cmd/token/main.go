// Package main issues a bearer token signed with JWT_SECRET.
//
//	token <user-id> [email] [name]
package main

import (
	"fmt"
	"os"

	"stockbook/internal/config"
	"stockbook/internal/domain/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: token <user-id> [email] [name]")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.AuthEnabled() {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	args := append(os.Args[1:], "", "")
	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.Issuer = cfg.Auth.Issuer

	token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(args[0], args[1], args[2], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format("2006-01-02 15:04:05"))
}
