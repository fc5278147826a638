// send-message sends one message through the configured transport, using
// the same text building and success rules as the daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/data"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, envFile, recipient, sender string
	var raw bool

	flagSet := pflag.NewFlagSet("send-message", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", conf.DefaultConfigPath(), "path to the JSON config file")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")
	flagSet.StringVarP(&recipient, "to", "t", "", "recipient (default: configured recipient)")
	flagSet.StringVarP(&sender, "sender", "s", "Test", "sender name shown in the message")
	flagSet.BoolVar(&raw, "raw", false, "send the text as-is, without prefix or sender")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: send-message [flags] <message>")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return errors.New("message text is required")
	}

	if err := conf.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s not loaded: %v\n", envFile, err)
	}

	cfg := conf.Load(configPath)
	cfg.ApplyEnv()
	for _, w := range cfg.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	transport, err := data.NewTransport(cfg)
	if err != nil {
		return err
	}
	dispatch := usecase.NewDispatchUsecase(transport, cfg.ToDispatchConfig())

	text := strings.Join(flagSet.Args(), " ")
	if !raw {
		text = dispatch.BuildText(sender, text)
	}
	if recipient == "" {
		recipient = cfg.Recipient
	}

	res := dispatch.SendTo(context.Background(), recipient, text)
	if out := strings.TrimSpace(res.Stdout); out != "" {
		fmt.Println(out)
	}
	if out := strings.TrimSpace(res.Stderr); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
	if !res.Success {
		return fmt.Errorf("send via %s failed (status %d)", dispatch.TransportName(), res.StatusCode)
	}

	fmt.Printf("Message sent via %s\n", dispatch.TransportName())
	return nil
}
