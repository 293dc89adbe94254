// Command payloadcrypt encrypts or decrypts serialized payloads.
//
// It reads {"payloads":[{"metadata":{...},"data":"..."}]} JSON, with byte
// values base64 encoded, and writes the same shape:
//
//	payloadcrypt decode < history-payloads.json
//	payloadcrypt --config prod.env encode --in plain.json --out sealed.json
//
// Settings come from the environment, falling back to the --config dotenv file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	crypto "github.com/rbaliyan/payload-crypto"
	"github.com/rbaliyan/payload-crypto/azurekv"
	"github.com/rbaliyan/payload-crypto/internal/config"
	"github.com/rbaliyan/payload-crypto/internal/logging"
	"github.com/rbaliyan/payload-crypto/vault"
)

type document struct {
	Payloads []*crypto.Payload `json:"payloads"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("payloadcrypt failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("payloadcrypt", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultFile, "dotenv file read for settings not set in the environment")
	inPath := fs.String("in", "", "input file (default stdin)")
	outPath := fs.String("out", "", "output file (default stdout)")
	timeout := fs.Duration("timeout", 30*time.Second, "time limit for loading the key")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: payloadcrypt [flags] encode|decode\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one command: encode or decode")
	}
	command := fs.Arg(0)
	if command != "encode" && command != "decode" {
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	slog.SetDefault(logger)

	format, err := cfg.Format()
	if err != nil {
		return err
	}
	provider, err := newKeyProvider(cfg, logger)
	if err != nil {
		return err
	}

	keyCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	codec, err := crypto.NewCodec(keyCtx, crypto.DefaultConverter(), provider, crypto.WithFormat(format))
	if err != nil {
		return fmt.Errorf("failed to create codec: %w", err)
	}

	in := stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var doc document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	var result []*crypto.Payload
	if command == "encode" {
		result, err = codec.EncodePayloads(doc.Payloads)
	} else {
		result, err = codec.DecodePayloads(doc.Payloads)
	}
	if err != nil {
		return err
	}
	logger.Debug("payloads processed", "command", command, "count", len(result))

	if *outPath == "" {
		return writeDocument(stdout, result)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := writeDocument(f, result); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}

func writeDocument(w io.Writer, payloads []*crypto.Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Payloads: payloads}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newKeyProvider(cfg *config.Config, logger *slog.Logger) (crypto.KeyProvider, error) {
	switch cfg.KeyBackend {
	case config.BackendStatic:
		return crypto.NewStaticKeyProviderFromBase64(cfg.StaticKey)
	case config.BackendVault:
		return vault.NewKeyProvider(cfg.VaultAddr, cfg.VaultSecretPath,
			vault.WithMount(cfg.VaultMount),
			vault.WithField(cfg.VaultField),
			vault.WithKeyProviderOptions(crypto.WithSecretLogger(logger)),
		), nil
	default:
		return azurekv.NewKeyProvider(cfg.KeyVaultURL, cfg.KeyVaultSecretName,
			azurekv.WithKeyProviderOptions(crypto.WithSecretLogger(logger)),
		), nil
	}
}
