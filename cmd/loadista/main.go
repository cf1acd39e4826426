package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdp/qrterminal/v3"

	"loadista/internal/config"
	"loadista/internal/httpserver"
	"loadista/internal/netaddr"
)

// Half-block glyphs for the terminal QR code.
const (
	blackWhite = "\u2584"
	blackBlack = " "
	whiteBlack = "\u2580"
	whiteWhite = "\u2588"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%v", err)
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg})
	if err != nil {
		log.Fatalf("server init: %v", err)
	}

	banner(os.Stdout, cfg, netaddr.Outbound())
	log.Printf("serving %s on %s (idle timeout %s)", cfg.Root, cfg.Addr(), cfg.Timeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

// loadConfig builds the Config from flags, or from -config when given.
func loadConfig(args []string, stderr io.Writer) (config.Config, error) {
	def := config.Default()
	fs := flag.NewFlagSet("loadista", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath   = fs.String("config", "", "path to config json (optional, replaces the other flags)")
		root      = fs.String("root", "", "folder to share (default: directory of the executable)")
		bind      = fs.String("bind", "", "listen host (default: all interfaces)")
		port      = fs.Int("port", def.Port, "listen port")
		timeout   = fs.Int("timeout", def.TimeoutSeconds, "connection idle timeout in seconds (negative disables)")
		maxUpload = fs.Int64("max-upload", 0, "max upload size in MiB (0 = unlimited)")
		title     = fs.String("title", def.Title, "page title")
		dav       = fs.Bool("dav", false, "also serve the folder over WebDAV at /dav/")
		noQR      = fs.Bool("no-qr", false, "do not print a QR code at startup")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := def
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return cfg, err
		}
	} else {
		qr := !*noQR
		cfg.Root = *root
		cfg.Bind = *bind
		cfg.Port = *port
		cfg.TimeoutSeconds = *timeout
		cfg.MaxUploadMB = *maxUpload
		cfg.Title = *title
		cfg.DAV = *dav
		cfg.QR = &qr
	}
	if err := cfg.Finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func banner(w io.Writer, cfg config.Config, addr string) {
	fmt.Fprintf(w, "Loadista running @ %s:%d\n", addr, cfg.Port)
	fmt.Fprintln(w, "Please open the address in another device's browser.")
	if cfg.DAV {
		fmt.Fprintf(w, "WebDAV: http://%s:%d/dav/\n", addr, cfg.Port)
	}
	if !cfg.ShowQR() {
		return
	}
	fmt.Fprintln(w)
	qrterminal.GenerateWithConfig(fmt.Sprintf("http://%s:%d/", addr, cfg.Port), qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      blackBlack,
		WhiteBlackChar: whiteBlack,
		WhiteChar:      whiteWhite,
		BlackWhiteChar: blackWhite,
		QuietZone:      1,
	})
}
