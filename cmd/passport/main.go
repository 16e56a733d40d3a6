package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-passport/internal/config"
	"github.com/celerix-dev/celerix-passport/internal/vault"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
	"github.com/celerix-dev/celerix-passport/pkg/schema"
	"github.com/celerix-dev/celerix-passport/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	addr := cfg.StoreAddr
	if addr == "" {
		addr = "localhost:7001"
	}

	client, err := sdk.Connect(addr, sdk.WithTLS(!cfg.DisableTLS))
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command := strings.ToLower(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "deploy":
		if len(args) < 4 {
			log.Fatal("Usage: passport deploy <caller> <surname> <given-name> <birthday> [inn]")
		}
		caller := mustCaller(args[0])
		birthday, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			log.Fatalf("birthday must be unix seconds: %v", err)
		}
		req := passport.Args{Surname: args[1], GivenName: args[2], Birthday: birthday}
		if len(args) > 4 {
			inn, err := strconv.ParseUint(args[4], 10, 64)
			if err != nil {
				log.Fatalf("inn must be a number: %v", err)
			}
			req.Metadata = schema.UserMetadata{INN: inn}.Encode()
		}

		if pass := cfg.VaultPassphrase; pass != "" {
			h, err := sdk.DeploySealed(ctx, client, caller, req, vault.DeriveKey(pass, caller[:]))
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(h.ID())
			return
		}
		id, err := client.Deploy(ctx, caller, req)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(id)

	case "name":
		if len(args) < 2 {
			log.Fatal("Usage: passport name <record> <caller>")
		}
		name, err := client.DisplayName(ctx, args[0], mustCaller(args[1]))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(name)

	case "active":
		if len(args) < 1 {
			log.Fatal("Usage: passport active <record>")
		}
		active, err := client.IsActive(ctx, args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(active)

	case "deactivate":
		if len(args) < 2 {
			log.Fatal("Usage: passport deactivate <record> <caller>")
		}
		if err := client.Deactivate(ctx, args[0], mustCaller(args[1])); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "metadata":
		if len(args) < 2 {
			log.Fatal("Usage: passport metadata <record> <caller>")
		}
		caller := mustCaller(args[1])
		h := client.Passport(args[0], caller)

		var meta []byte
		if pass := cfg.VaultPassphrase; pass != "" {
			meta, err = h.Vault(vault.DeriveKey(pass, caller[:])).Metadata(ctx)
		} else {
			meta, err = h.Metadata(ctx)
		}
		if err != nil {
			log.Fatal(err)
		}
		if decoded, err := schema.DecodeUserMetadata(meta); err == nil {
			printJSON(decoded)
			return
		}
		fmt.Println(string(meta))

	case "list":
		ids, err := client.List(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(ids)

	case "ping":
		if err := client.Ping(ctx); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func mustCaller(s string) passport.AccountID {
	caller, err := passport.ParseAccountID(s)
	if err != nil {
		log.Fatalf("caller %q: %v", s, err)
	}
	return caller
}

func printUsage() {
	fmt.Println("Passport CLI - Interface for celerix-passportd")
	fmt.Println("\nUsage:")
	fmt.Println("  passport deploy <caller> <surname> <given-name> <birthday> [inn]")
	fmt.Println("  passport name <record> <caller>")
	fmt.Println("  passport active <record>")
	fmt.Println("  passport deactivate <record> <caller>")
	fmt.Println("  passport metadata <record> <caller>")
	fmt.Println("  passport list")
	fmt.Println("  passport ping")
	fmt.Println("\nCallers are 32-byte account IDs in hex.")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  CELERIX_STORE_ADDR        Address of the daemon (default: localhost:7001)")
	fmt.Println("  CELERIX_DISABLE_TLS       Set to true to disable TLS")
	fmt.Println("  CELERIX_VAULT_PASSPHRASE  Seal metadata client-side with a key derived from this passphrase")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
