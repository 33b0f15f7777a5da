package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		shopUUID   string
		clientID   string
		scopes     string
		ttl        time.Duration
	)
	flag.StringVar(&configFile, "config", "", "Path to a config file (default: ./config.toml)")
	flag.StringVar(&shopUUID, "shop", "", "Shop the token writes into")
	flag.StringVar(&clientID, "client", "", "Name of the client the token is issued to")
	flag.StringVar(&scopes, "scopes", auth.ScopeProductsWrite, "Comma separated scopes")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.token_expiration)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var cfg *config.Config
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if len(cfg.Auth.Secret) < config.MinAuthSecretLength {
		log.Fatal("auth.secret is not configured")
	}
	tokens := auth.NewShopTokenService(cfg.Auth)

	switch args[0] {
	case "issue":
		issued, err := tokens.Issue(auth.IssueTokenInput{
			ShopUUID: shopUUID,
			ClientID: clientID,
			Scopes:   splitScopes(scopes),
			TTL:      ttl,
		})
		if err != nil {
			log.Fatal("Failed to issue token", zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(issued); err != nil {
			log.Fatal("Failed to write token", zap.Error(err))
		}
	case "revoke":
		if len(args) < 2 {
			log.Fatal("Token required. Usage: token revoke <token>")
		}
		claims, err := tokens.Validate(args[1])
		if err != nil {
			log.Fatal("Token is not valid, nothing to revoke", zap.Error(err))
		}
		if !cfg.Redis.Enabled {
			log.Fatal("Revocation needs redis.enabled")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()

		revocations := auth.NewRedisRevocationList(client, cfg.Auth.RevocationPrefix)
		if err := revocations.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			log.Fatal("Failed to revoke token", zap.Error(err))
		}
		log.Info("Token revoked",
			zap.String("jti", claims.ID),
			zap.String("shop_uuid", claims.ShopUUID),
			zap.String("client_id", claims.ClientID),
		)
	default:
		printUsage()
		os.Exit(1)
	}
}

func splitScopes(s string) []string {
	var scopes []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

func printUsage() {
	fmt.Println(`Storefront shop token tool

Usage:
  token [flags] <command> [arguments]

Commands:
  issue                 Issue a token for -shop and -client
  revoke <token>        Revoke a token until it expires

Flags:
  -shop string          Shop the token writes into
  -client string        Client the token is issued to
  -scopes string        Comma separated scopes (default: products:write)
  -ttl duration         Token lifetime (default: auth.token_expiration)
  -config string        Config file (default: ./config.toml)

The secret is read from auth.secret or STOREFRONT_AUTH_SECRET.`)
}
