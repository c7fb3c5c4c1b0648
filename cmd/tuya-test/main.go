package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"tuyabridge/config"
	"tuyabridge/internal/devices"
	"tuyabridge/internal/logging"
	"tuyabridge/internal/storage"
	"tuyabridge/internal/storage/file"
	"tuyabridge/internal/storage/sqlite"
	"tuyabridge/internal/tuya"
	"tuyabridge/internal/tuya/auth"
	"tuyabridge/internal/tuya/sharing"
	"tuyabridge/internal/tuya/signed"
)

// Manual probe against the live cloud: link an account, list its devices, or
// read one device's canonical state. Uses the same config file as the bridge
// and shares its credential store.
func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	action := flag.String("action", "devices", "Action to perform: link, devices, status")
	deviceID := flag.String("device", "", "Device id (required for -action status)")
	timeout := flag.Duration("timeout", sharing.DefaultLinkTimeout, "How long to wait for a QR scan")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{Format: "text", Level: slog.LevelWarn})

	store := openStore(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+30*time.Second)
	defer cancel()

	switch *action {
	case "link":
		runLink(ctx, cfg, store, logger, *timeout)
	case "devices":
		service := buildService(ctx, cfg, store, logger)
		summaries, err := service.ListDevices(ctx)
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		fmt.Printf("Found %d device(s):\n", len(summaries))
		for _, s := range summaries {
			fmt.Printf("  %-24s %-10s %-8s online=%v  %s\n", s.ID, s.Type, s.Category, s.Online, s.Name)
		}
	case "status":
		if *deviceID == "" {
			log.Fatal("-device is required for -action status")
		}
		service := buildService(ctx, cfg, store, logger)
		state, err := service.GetState(ctx, *deviceID)
		if err != nil {
			log.Fatalf("Failed to get device state: %v", err)
		}
		encoded, _ := json.MarshalIndent(state, "", "  ")
		fmt.Println(string(encoded))
	default:
		log.Fatalf("Unknown action %q (want link, devices or status)", *action)
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) storage.CredentialStore {
	if cfg.Storage.Backend == config.StorageSQLite {
		db, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		return db
	}
	return file.New(cfg.Storage.Path, logger)
}

func runLink(ctx context.Context, cfg *config.Config, store storage.CredentialStore, logger *slog.Logger, timeout time.Duration) {
	if cfg.Tuya.Protocol != config.ProtocolSharing {
		log.Fatal("QR linking requires the sharing protocol; set tuya.protocol to \"sharing\"")
	}

	manager := auth.NewManager(&auth.LocalExtender{}, logger)
	defer manager.Close()

	client := sharing.NewClient(sharing.Config{
		BaseURL: cfg.Tuya.BaseURL,
		AppKey:  cfg.Tuya.AppKey,
	}, manager, logger)

	fmt.Printf("Requesting QR code for user code %s...\n", cfg.Tuya.UserCode)
	qr, err := client.IssueQRCode(ctx, cfg.Tuya.UserCode)
	if err != nil {
		log.Fatalf("Failed to issue QR code: %v", err)
	}

	fmt.Printf("\nEncode this payload as a QR image and scan it in the Smart Life app:\n\n")
	fmt.Printf("  %s\n\n", qr.Payload())
	fmt.Printf("Waiting for scan (up to %s)...\n", timeout)

	tokens, err := client.WaitForLink(ctx, qr, sharing.DefaultPollInterval, timeout)
	if err != nil {
		log.Fatalf("Linking failed: %v", err)
	}

	fmt.Printf("Linked account %s\n", tokens.UID)

	err = store.Save(ctx, &storage.StoredCredentials{
		UserCode:   cfg.Tuya.UserCode,
		TokenInfo:  tokens,
		TerminalID: tokens.TerminalID,
		Endpoint:   tokens.Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to save credentials: %v", err)
	}

	fmt.Printf("Credentials saved to %s\n", cfg.Storage.Path)
	expires := time.UnixMilli(tokens.ExpiresAt)
	fmt.Printf("Access token expires at %s (%s from now)\n",
		expires.Format(time.RFC3339), time.Until(expires).Round(time.Second))
}

func buildService(ctx context.Context, cfg *config.Config, store storage.CredentialStore, logger *slog.Logger) devices.StateService {
	creds, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load stored credentials: %v", err)
	}
	if creds == nil {
		fmt.Fprintln(os.Stderr, "No stored credentials. Run with -action link first.")
		os.Exit(1)
	}

	var manager *auth.Manager
	var client tuya.Client

	switch cfg.Tuya.Protocol {
	case config.ProtocolSigned:
		refresher := &auth.NetworkRefresher{}
		manager = auth.NewManager(refresher, logger)
		signedClient := signed.NewClient(signed.Config{
			BaseURL:  cfg.Tuya.BaseURL,
			ClientID: cfg.Tuya.ClientID,
		}, manager, logger)
		refresher.Client = signedClient
		client = signedClient
	default:
		manager = auth.NewManager(&auth.LocalExtender{}, logger)
		client = sharing.NewClient(sharing.Config{
			BaseURL: cfg.Tuya.BaseURL,
			AppKey:  cfg.Tuya.AppKey,
		}, manager, logger)
	}
	manager.SetTokens(creds.TokenInfo)

	translator, err := devices.NewTranslator(devices.TranslatorConfig{
		MinKelvin: cfg.Tuya.MinKelvin,
		MaxKelvin: cfg.Tuya.MaxKelvin,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to build translator: %v", err)
	}

	return devices.NewService(client, devices.NewRegistry(), translator, logger)
}
